package capture

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

type portAudioBackend struct{}

func newPortAudioBackend() (Backend, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}
	return &portAudioBackend{}, nil
}

func (b *portAudioBackend) Devices() ([]Device, error) {
	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceEnumeration, err)
	}
	var devices []Device
	for _, info := range infos {
		if info.MaxInputChannels < 1 {
			continue
		}
		devices = append(devices, Device{ID: info.Name, Name: info.Name})
	}
	return devices, nil
}

func (b *portAudioBackend) Negotiate(deviceID string) (InputConfig, error) {
	var info *portaudio.DeviceInfo
	if deviceID != "" {
		infos, err := portaudio.Devices()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDeviceEnumeration, err)
		}
		for _, candidate := range infos {
			if candidate.Name == deviceID && candidate.MaxInputChannels > 0 {
				info = candidate
				break
			}
		}
		if info == nil {
			return nil, fmt.Errorf("%w: selected device %q not found", ErrNoInputDevice, deviceID)
		}
	} else {
		def, err := portaudio.DefaultInputDevice()
		if err != nil || def == nil {
			return nil, ErrNoInputDevice
		}
		info = def
	}

	if info.MaxInputChannels < 1 {
		return nil, ErrNoSupportedConfig
	}
	return negotiateFormat(info)
}

// negotiateFormat probes input formats, preferring mono and otherwise the
// device's full channel count, each at the highest supported rate.
func negotiateFormat(info *portaudio.DeviceInfo) (InputConfig, error) {
	channelCandidates := []int{1}
	if info.MaxInputChannels > 1 {
		channelCandidates = append(channelCandidates, info.MaxInputChannels)
	}
	rates := rateCandidates(int(info.DefaultSampleRate))
	for _, channels := range channelCandidates {
		for _, rate := range rates {
			params := inputParams(info, channels, rate)
			if err := portaudio.IsFormatSupported(params, func(in []float32) {}); err == nil {
				return &portAudioConfig{device: info, channels: channels, sampleRate: rate}, nil
			}
		}
	}
	return nil, ErrNoSupportedConfig
}

// rateCandidates lists probe rates highest first. The device's default
// rate joins the common rates so it is always attempted.
func rateCandidates(defaultRate int) []int {
	common := []int{96000, 48000, 44100, 32000, 22050, 16000, 8000}
	rates := make([]int, 0, len(common)+1)
	inserted := defaultRate <= 0
	for _, r := range common {
		if !inserted && defaultRate > r {
			rates = append(rates, defaultRate)
			inserted = true
		}
		if r == defaultRate {
			inserted = true
		}
		rates = append(rates, r)
	}
	if !inserted {
		rates = append(rates, defaultRate)
	}
	return rates
}

func inputParams(info *portaudio.DeviceInfo, channels, rate int) portaudio.StreamParameters {
	return portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   info,
			Channels: channels,
			Latency:  info.DefaultLowInputLatency,
		},
		SampleRate:      float64(rate),
		FramesPerBuffer: portaudio.FramesPerBufferUnspecified,
	}
}

func (b *portAudioBackend) Close() error {
	return portaudio.Terminate()
}

type portAudioConfig struct {
	device     *portaudio.DeviceInfo
	channels   int
	sampleRate int
}

func (c *portAudioConfig) SampleRate() int { return c.sampleRate }
func (c *portAudioConfig) Channels() int   { return c.channels }

func (c *portAudioConfig) Open(cb func(block []float32)) (Stream, error) {
	params := inputParams(c.device, c.channels, c.sampleRate)
	stream, err := portaudio.OpenStream(params, func(in []float32) {
		cb(in)
	})
	if err != nil {
		return nil, fmt.Errorf("open input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("start input stream: %w", err)
	}
	return &portAudioStream{stream: stream}, nil
}

type portAudioStream struct {
	stream *portaudio.Stream
}

func (s *portAudioStream) Close() error {
	if err := s.stream.Stop(); err != nil {
		s.stream.Close()
		return err
	}
	return s.stream.Close()
}
