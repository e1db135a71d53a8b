package component

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// MockService is a test double implementing every modality service
// interface. Used by lifecycle and voice-agent tests.
type MockService struct {
	InitErr    error
	ReleaseErr error
	InitDelay  time.Duration

	VAD        VADResult
	VADErr     error
	Text       string
	STTErr     error
	Reply      string
	GenErr     error
	GenDelay   time.Duration
	Audio      SynthesizedAudio
	SynthErr   error

	InitCalls    atomic.Int64
	ReleaseCalls atomic.Int64
	DetectCalls  atomic.Int64
	STTCalls     atomic.Int64
	GenCalls     atomic.Int64
	SynthCalls   atomic.Int64
}

func (s *MockService) Initialize(ctx context.Context) error {
	s.InitCalls.Add(1)
	if s.InitDelay > 0 {
		select {
		case <-time.After(s.InitDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return s.InitErr
}

func (s *MockService) Release(ctx context.Context) error {
	s.ReleaseCalls.Add(1)
	return s.ReleaseErr
}

func (s *MockService) DetectSpeech(ctx context.Context, chunk []byte) (VADResult, error) {
	s.DetectCalls.Add(1)
	return s.VAD, s.VADErr
}

func (s *MockService) Transcribe(ctx context.Context, audio []byte) (Transcript, error) {
	s.STTCalls.Add(1)
	if s.STTErr != nil {
		return Transcript{}, s.STTErr
	}
	return Transcript{Text: s.Text, Confidence: 0.9}, nil
}

func (s *MockService) Generate(ctx context.Context, prompt string) (string, error) {
	s.GenCalls.Add(1)
	if s.GenDelay > 0 {
		select {
		case <-time.After(s.GenDelay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.Reply, s.GenErr
}

func (s *MockService) Synthesize(ctx context.Context, text string) (SynthesizedAudio, error) {
	s.SynthCalls.Add(1)
	if s.SynthErr != nil {
		return SynthesizedAudio{}, s.SynthErr
	}
	return s.Audio, nil
}

// MockFactory is a ServiceFactory test double. When Service is nil each
// CreateService call returns a fresh MockService.
type MockFactory struct {
	Service   *MockService
	CreateErr error

	mu      sync.Mutex
	created []*MockService
}

func (f *MockFactory) CreateService(ctx context.Context, cfg Config) (Service, error) {
	if f.CreateErr != nil {
		return nil, f.CreateErr
	}
	svc := f.Service
	if svc == nil {
		svc = &MockService{}
	}
	f.mu.Lock()
	f.created = append(f.created, svc)
	f.mu.Unlock()
	return svc, nil
}

// CreateCount returns how many services the factory has handed out.
func (f *MockFactory) CreateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

// Created returns the services handed out so far, in creation order.
func (f *MockFactory) Created() []*MockService {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*MockService, len(f.created))
	copy(out, f.created)
	return out
}
