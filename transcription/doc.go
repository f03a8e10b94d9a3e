// Package transcription defines the typed speech-to-text task: the audio
// payload, decoding parameters, the result with its segments, and the
// Handler capability backends implement.
//
// # Backends
//
//   - transcription/whisper: faster-whisper HTTP sidecar
//
// # Usage
//
//	reg := transcription.NewRegistry()
//	reg.RegisterFactory(whisper.ProviderName, whisper.Factory())
//	mgr := transcription.NewManager(reg)
//	_ = mgr.Initialize("primary", whisper.ProviderName, map[string]any{"url": url})
//	h := provider.Routed("transcription", mgr)
package transcription
