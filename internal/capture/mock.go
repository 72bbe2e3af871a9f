package capture

import "sync"

// MockBackend feeds scripted sample blocks to the session, standing in for
// the host audio layer in tests and headless environments.
type MockBackend struct {
	mu         sync.Mutex
	devices    []Device
	sampleRate int
	channels   int
	blocks     [][]float32
	delivered  chan struct{}
	deliverOne sync.Once

	DevicesErr   error
	NegotiateErr error
	OpenErr      error
}

func NewMockBackend() *MockBackend {
	return &MockBackend{
		devices:    []Device{{ID: "Mock Microphone", Name: "Mock Microphone"}},
		sampleRate: 16000,
		channels:   1,
		delivered:  make(chan struct{}),
	}
}

// Script sets the format and blocks delivered once a stream opens.
func (b *MockBackend) Script(sampleRate, channels int, blocks ...[]float32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sampleRate = sampleRate
	b.channels = channels
	b.blocks = blocks
	b.delivered = make(chan struct{})
	b.deliverOne = sync.Once{}
}

// Delivered is closed once every scripted block has been handed to the
// capture callback.
func (b *MockBackend) Delivered() <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.delivered
}

func (b *MockBackend) Devices() ([]Device, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.DevicesErr != nil {
		return nil, b.DevicesErr
	}
	out := make([]Device, len(b.devices))
	copy(out, b.devices)
	return out, nil
}

func (b *MockBackend) Negotiate(deviceID string) (InputConfig, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.NegotiateErr != nil {
		return nil, b.NegotiateErr
	}
	if deviceID != "" {
		found := false
		for _, d := range b.devices {
			if d.ID == deviceID {
				found = true
				break
			}
		}
		if !found {
			return nil, ErrNoInputDevice
		}
	}
	return &mockConfig{backend: b, sampleRate: b.sampleRate, channels: b.channels}, nil
}

func (b *MockBackend) Close() error { return nil }

type mockConfig struct {
	backend    *MockBackend
	sampleRate int
	channels   int
}

func (c *mockConfig) SampleRate() int { return c.sampleRate }
func (c *mockConfig) Channels() int   { return c.channels }

// Open delivers every scripted block synchronously before returning, so a
// test that has seen Delivered close knows the buffer is settled.
func (c *mockConfig) Open(cb func(block []float32)) (Stream, error) {
	c.backend.mu.Lock()
	err := c.backend.OpenErr
	blocks := c.backend.blocks
	delivered := c.backend.delivered
	c.backend.mu.Unlock()
	if err != nil {
		return nil, err
	}

	for _, block := range blocks {
		cb(block)
	}
	c.backend.deliverOne.Do(func() { close(delivered) })
	return &mockStream{}, nil
}

type mockStream struct{}

func (s *mockStream) Close() error { return nil }
