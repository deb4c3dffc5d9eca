// Package harness runs timing scenarios against a real controller and
// compares the resulting trace with golden files.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: tempo_change
//	description: "Beat is continuous across a tempo change"
//	tempo: 120
//	quantum: 4
//	path: app            # app (default) or audio
//	clock:               # optional; default is 1 tick per microsecond
//	  ticks_per_second: 44100
//	steps:
//	  - op: set_tempo
//	    bpm: 60
//	    time: 500000
//	  - op: observe
//	    time: 1500000
//	    expect: { beat: 2.0 }
//
// # Operations
//
//   - observe: read the session at time
//   - set_tempo: change tempo at time
//   - request_beat / force_beat: map beat to time
//   - set_playing: start or stop transport at time
//   - start_and_request: start or stop transport and request beat at time
//   - request_at_start: request beat at the transport start time
//   - time_at_beat: find the time of beat
//   - clock: convert ticks (or micros) through the scenario clock
//
// Every mutating step captures the session through the scenario's path,
// changes the copy and commits it back, exactly as an application would.
//
// # Deterministic Testing
//
// The clock is driven by a manual tick source and the journal lives in an
// in-memory SQLite database with sequential IDs, so identical scenarios
// produce identical traces.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/tempo_change.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if !result.Pass {
//	    for _, e := range result.Errors {
//	        log.Println(e)
//	    }
//	}
package harness
