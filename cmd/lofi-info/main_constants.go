package main

// Test signal parameters
const (
	testSignalSeconds    = 0.5 // Length of the test tone
	testSignalAmplitude  = 0.5
	testToneAboveNyquist = 0.6 // Tone frequency as a fraction of the effective rate
)

// Target rates listed by -demo
var demoTargets = []int{250, 1000, 4000, 8000, 10000, 16000, 22050, 30000}
