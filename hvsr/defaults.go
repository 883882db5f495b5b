package hvsr

// Central table of default numeric thresholds. Every stage config references
// these constants so a test suite can assert defaults in one place.
const (
	// Noise window selection.
	DefaultWindowLengthSec  = 60.0
	DefaultSatPercent       = 0.995
	DefaultNoisePercent     = 0.80
	DefaultSTASec           = 2.0
	DefaultLTASec           = 30.0
	DefaultSTALTAThreshLow  = 0.5
	DefaultSTALTAThreshHigh = 5.0
	DefaultMinSpanSec       = 1.0

	// Spectral estimation.
	DefaultPSDSegmentLength   = 256
	DefaultPSDOverlap         = 0.75
	DefaultOutlierStd         = 3.0
	DefaultOutlierBinFraction = 0.5
	DefaultMinWindowCount     = 3

	// Curve combination.
	DefaultSmoothingBandwidth = 40.0
	DefaultResamplePoints     = 1000
	DefaultOutlierCurveStd    = 1.75

	// Peak analysis.
	DefaultWaterLevel = 1.8
	DefaultBandLowHz  = 0.4
	DefaultBandHighHz = 40.0
)
