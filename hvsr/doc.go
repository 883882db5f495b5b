// Package hvsr defines the shared data model, error taxonomy, and default
// parameter table for horizontal-to-vertical spectral ratio (HVSR) processing.
//
// The processing stages live in the subpackages noise, spectral, curve, and
// peak; the pipeline subpackage wires them together into a single run.
package hvsr
