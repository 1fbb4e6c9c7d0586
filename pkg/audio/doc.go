// Package audio provides audio processing utilities.
//
// This package serves as an umbrella for audio-related sub-packages:
//
//   - wav: WAV container parsing and encoding
//   - extract: voice sample extraction from meeting recordings
package audio
