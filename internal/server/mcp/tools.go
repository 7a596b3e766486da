package mcp

import (
	"context"
	"fmt"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/quentin/dafgen/internal/audio"
)

type StartFeedbackArgs struct {
	DelayMs *int     `json:"delay_ms,omitempty" jsonschema:"description=Initial feedback delay in milliseconds"`
	Gain    *float64 `json:"gain,omitempty" jsonschema:"description=Initial output gain as a linear factor (1.0 = unity)"`
}

type StopFeedbackArgs struct{}

type SetDelayArgs struct {
	DelayMs int `json:"delay_ms" jsonschema:"required,description=Feedback delay in milliseconds"`
}

type SetGainArgs struct {
	Gain float64 `json:"gain" jsonschema:"required,description=Output gain as a linear factor (1.0 = unity)"`
}

type GetStatusArgs struct{}

type ListDevicesArgs struct{}

func textResult(format string, args ...any) *sdk.CallToolResult {
	return &sdk.CallToolResult{
		Content: []sdk.Content{
			&sdk.TextContent{Text: fmt.Sprintf(format, args...)},
		},
	}
}

func (s *Server) handleStartFeedback(ctx context.Context, req *sdk.CallToolRequest, args StartFeedbackArgs) (*sdk.CallToolResult, any, error) {
	if args.DelayMs != nil {
		s.session.SetDelay(time.Duration(*args.DelayMs) * time.Millisecond)
	}
	if args.Gain != nil {
		s.session.SetGain(*args.Gain)
	}

	if err := s.session.Start(context.Background()); err != nil {
		return nil, nil, fmt.Errorf("failed to start feedback: %w", err)
	}

	return textResult("Feedback running: delay %dms, gain %.2f",
		s.session.Delay().Milliseconds(), s.session.Gain()), nil, nil
}

func (s *Server) handleStopFeedback(ctx context.Context, req *sdk.CallToolRequest, args StopFeedbackArgs) (*sdk.CallToolResult, any, error) {
	if err := s.session.Stop(); err != nil {
		return nil, nil, fmt.Errorf("failed to stop feedback: %w", err)
	}
	return textResult("Feedback stopped"), nil, nil
}

func (s *Server) handleSetDelay(ctx context.Context, req *sdk.CallToolRequest, args SetDelayArgs) (*sdk.CallToolResult, any, error) {
	if args.DelayMs < 0 {
		return nil, nil, fmt.Errorf("delay must not be negative")
	}
	s.session.SetDelay(time.Duration(args.DelayMs) * time.Millisecond)
	return textResult("Delay set to %dms", s.session.Delay().Milliseconds()), nil, nil
}

func (s *Server) handleSetGain(ctx context.Context, req *sdk.CallToolRequest, args SetGainArgs) (*sdk.CallToolResult, any, error) {
	if args.Gain < 0 {
		return nil, nil, fmt.Errorf("gain must not be negative")
	}
	s.session.SetGain(args.Gain)
	return textResult("Gain set to %.2f", s.session.Gain()), nil, nil
}

func (s *Server) handleGetStatus(ctx context.Context, req *sdk.CallToolRequest, args GetStatusArgs) (*sdk.CallToolResult, any, error) {
	stats := s.session.Stats()
	return textResult(
		"state: %s\ndelay: %dms\nmeasured delay: %dms\ngain: %.2f\nlevel: %.3f\nunderruns: %d\noverruns: %d",
		stats.State,
		stats.Delay.Milliseconds(),
		stats.MeasuredDelay.Milliseconds(),
		stats.Gain,
		stats.Level,
		stats.Underruns,
		stats.Overruns), nil, nil
}

func (s *Server) handleListDevices(ctx context.Context, req *sdk.CallToolRequest, args ListDevicesArgs) (*sdk.CallToolResult, any, error) {
	content := []sdk.Content{}

	for _, kind := range []audio.DeviceType{audio.DeviceTypeCapture, audio.DeviceTypePlayback} {
		devices, err := audio.ListDevices(kind)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to list %s devices: %w", kind, err)
		}

		content = append(content, &sdk.TextContent{
			Text: fmt.Sprintf("%s devices (%d):", kind, len(devices)),
		})
		for _, device := range devices {
			content = append(content, &sdk.TextContent{Text: "- " + device.String()})
		}
	}

	return &sdk.CallToolResult{Content: content}, nil, nil
}
