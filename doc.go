// Package edgekit is an on-device AI client SDK. It manages the lifecycle
// of inference components (LLM, STT, TTS, VAD, speaker diarization, and the
// composite voice agent) over a native engine, routes their events through
// an in-process bus, and ships usage analytics to a collector.
//
// Typical use:
//
//	sdk, err := edgekit.New(edgekit.Options{Engine: engine})
//	if err != nil {
//		return err
//	}
//	defer sdk.Close(ctx)
//
//	result := sdk.Initialize(ctx, []edgekit.Config{
//		edgekit.LLMConfig{Base: edgekit.Base{Model: "llama-3b"}},
//	})
package edgekit
