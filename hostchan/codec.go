package hostchan

import (
	"encoding/json"
	"fmt"
)

// envelope is the wire form: a type tag plus the message body.
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Outbound wire tags.
const (
	typeCaptureRequest = "capture-request"
	typeExportFile     = "export-file"
	typeSaveSlide      = "save-slide"
	typeReorderSlides  = "reorder-slides"
	typeBatchComplete  = "batch-complete"
)

// Inbound wire tags.
const (
	typeCaptureResult     = "capture-result"
	typeCaptureError      = "capture-error"
	typeSaveResult        = "save-result"
	typeExportFolderReady = "export-folder-ready"
	typeExportCancelled   = "export-cancelled"
	typeSlideUpdated      = "slide-updated"
	typeBuildStarted      = "build-started"
	typeBuildProgress     = "build-progress"
	typeBuildComplete     = "build-complete"
)

// MarshalOutbound encodes an outbound message into its wire envelope.
func MarshalOutbound(msg Outbound) ([]byte, error) {
	var tag string
	switch msg.(type) {
	case CaptureRequest:
		tag = typeCaptureRequest
	case ExportFile:
		tag = typeExportFile
	case SaveSlide:
		tag = typeSaveSlide
	case ReorderSlides:
		tag = typeReorderSlides
	case BatchComplete:
		tag = typeBatchComplete
	default:
		return nil, fmt.Errorf("hostchan: unknown outbound type %T", msg)
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("hostchan: marshal %s: %w", tag, err)
	}
	return json.Marshal(envelope{Type: tag, Payload: payload})
}

// UnmarshalInbound decodes a wire envelope into its inbound variant.
func UnmarshalInbound(data []byte) (Inbound, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("hostchan: decode envelope: %w", err)
	}

	switch env.Type {
	case typeCaptureResult:
		var m CaptureResult
		if err := json.Unmarshal(env.Payload, &m); err != nil {
			return nil, fmt.Errorf("hostchan: decode %s: %w", env.Type, err)
		}
		return m, nil
	case typeCaptureError:
		var m CaptureError
		if err := json.Unmarshal(env.Payload, &m); err != nil {
			return nil, fmt.Errorf("hostchan: decode %s: %w", env.Type, err)
		}
		return m, nil
	case typeSaveResult:
		var m SaveResult
		if err := json.Unmarshal(env.Payload, &m); err != nil {
			return nil, fmt.Errorf("hostchan: decode %s: %w", env.Type, err)
		}
		return m, nil
	case typeExportFolderReady:
		return ExportFolderReady{}, nil
	case typeExportCancelled:
		return ExportCancelled{}, nil
	case typeSlideUpdated:
		var m SlideUpdated
		if err := json.Unmarshal(env.Payload, &m); err != nil {
			return nil, fmt.Errorf("hostchan: decode %s: %w", env.Type, err)
		}
		return m, nil
	case typeBuildStarted:
		return BuildStarted{}, nil
	case typeBuildProgress:
		var m BuildProgress
		if len(env.Payload) > 0 {
			if err := json.Unmarshal(env.Payload, &m); err != nil {
				return nil, fmt.Errorf("hostchan: decode %s: %w", env.Type, err)
			}
		}
		return m, nil
	case typeBuildComplete:
		var m BuildComplete
		if len(env.Payload) > 0 {
			if err := json.Unmarshal(env.Payload, &m); err != nil {
				return nil, fmt.Errorf("hostchan: decode %s: %w", env.Type, err)
			}
		}
		return m, nil
	}
	return nil, fmt.Errorf("hostchan: unknown inbound type %q", env.Type)
}
