package composefile

import "fmt"

// =============================================================================
// Media Server Parameters
// =============================================================================

// MediaParams parameterizes the Navidrome music server descriptor. The zero
// value is not usable; start from DefaultMediaParams.
type MediaParams struct {
	// Image is the media server image reference.
	Image string

	// ServiceName is the single service's name in the descriptor.
	ServiceName string

	// Port is the published host port for the web UI (container port 4533).
	Port int

	// DataDir is the bind-mounted state directory, relative to the
	// descriptor's directory. MusicDir is mounted read-only.
	DataDir  string
	MusicDir string

	// ScanSchedule, LogLevel, and SessionTimeout feed the server's
	// environment.
	ScanSchedule   string
	LogLevel       string
	SessionTimeout string

	// RestartPolicy is the service restart policy.
	RestartPolicy string
}

// DefaultMediaParams returns the stock Navidrome parameters.
func DefaultMediaParams() MediaParams {
	return MediaParams{
		Image:          "deluan/navidrome:latest",
		ServiceName:    "navidrome",
		Port:           4533,
		DataDir:        "./data",
		MusicDir:       "./music",
		ScanSchedule:   "1h",
		LogLevel:       "info",
		SessionTimeout: "24h",
		RestartPolicy:  "unless-stopped",
	}
}

// RenderMedia produces the Compose descriptor for the media server: one
// service, one port mapping, a state bind and a read-only music bind.
// Deterministic like Render.
func RenderMedia(params MediaParams) ([]byte, error) {
	if err := validateMediaParams(params); err != nil {
		return nil, err
	}

	doc := descriptor{
		Services: map[string]service{
			params.ServiceName: {
				Image:   params.Image,
				Restart: params.RestartPolicy,
				Environment: map[string]string{
					"ND_SCANSCHEDULE":   params.ScanSchedule,
					"ND_LOGLEVEL":       params.LogLevel,
					"ND_SESSIONTIMEOUT": params.SessionTimeout,
				},
				Ports: []string{
					fmt.Sprintf("%d:4533", params.Port),
				},
				Volumes: []string{
					params.DataDir + ":/data",
					params.MusicDir + ":/music:ro",
				},
			},
		},
	}

	return marshalAndValidate(doc)
}

// validateMediaParams rejects parameterizations the descriptor shape cannot
// hold.
func validateMediaParams(params MediaParams) error {
	if params.Image == "" {
		return NewRenderError("image", "image is required", ErrInvalidParams)
	}
	if params.ServiceName == "" {
		return NewRenderError("service", "service name is required", ErrInvalidParams)
	}
	if params.Port < 1 || params.Port > 65535 {
		return NewRenderError("port", fmt.Sprintf("port %d out of range", params.Port), ErrInvalidParams)
	}
	if params.DataDir == "" || params.MusicDir == "" {
		return NewRenderError("volumes", "bind directories are required", ErrInvalidParams)
	}
	return nil
}
