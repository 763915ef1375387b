// Package media adapts cards created by the core to real audio.
//
// Two frameworks implement interfaces.IAudioFramework:
//
//   - FileFramework plays a WAV or Ogg/Opus file to the peer and records
//     the peer's audio to a 24-bit WAV file per card. Both directions are
//     paced by the card's software clock.
//   - MalgoFramework opens a duplex sound-card device per card. Host input
//     is sent to the peer and the peer's audio is played on the host
//     output; the sound card's own clock paces the data.
//
// Samples cross the card boundary as packed 24-bit little-endian values,
// one block per channel.
package media
