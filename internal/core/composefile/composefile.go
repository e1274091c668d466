// Package composefile renders the reverse-proxy manager's Compose
// descriptor from parameters. This is part of the Functional Core - pure
// functions, no I/O. The shell deploy layer writes the rendered bytes to
// disk and launches them.
package composefile

import (
	"context"
	"fmt"

	"github.com/compose-spec/compose-go/v2/loader"
	"github.com/compose-spec/compose-go/v2/types"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Proxy Manager Parameters
// =============================================================================

// ProxyParams parameterizes the reverse-proxy manager descriptor. The zero
// value is not usable; start from DefaultProxyParams.
type ProxyParams struct {
	// Image is the proxy manager image reference.
	Image string

	// ServiceName is the single service's name in the descriptor.
	ServiceName string

	// HTTPPort, AdminPort, and HTTPSPort are the three published host ports.
	HTTPPort  int
	AdminPort int
	HTTPSPort int

	// DataDir and LetsEncryptDir are the two bind-mounted host directories,
	// relative to the descriptor's directory.
	DataDir        string
	LetsEncryptDir string

	// RestartPolicy is the service restart policy.
	RestartPolicy string
}

// DefaultProxyParams returns the stock NGinX Proxy Manager parameters.
func DefaultProxyParams() ProxyParams {
	return ProxyParams{
		Image:          "jc21/nginx-proxy-manager:latest",
		ServiceName:    "app",
		HTTPPort:       80,
		AdminPort:      81,
		HTTPSPort:      443,
		DataDir:        "./data",
		LetsEncryptDir: "./letsencrypt",
		RestartPolicy:  "unless-stopped",
	}
}

// =============================================================================
// Descriptor Rendering
// =============================================================================

// descriptor mirrors the Compose file shape for deterministic marshalling.
type descriptor struct {
	Services map[string]service `yaml:"services"`
}

type service struct {
	Image       string            `yaml:"image"`
	Restart     string            `yaml:"restart"`
	Environment map[string]string `yaml:"environment,omitempty"`
	Ports       []string          `yaml:"ports"`
	Volumes     []string          `yaml:"volumes"`
}

// Render produces the Compose descriptor for the proxy manager: one
// service, three port mappings, two bind mounts. Rendering the same params
// twice yields byte-identical output.
func Render(params ProxyParams) ([]byte, error) {
	if err := validateParams(params); err != nil {
		return nil, err
	}

	doc := descriptor{
		Services: map[string]service{
			params.ServiceName: {
				Image:   params.Image,
				Restart: params.RestartPolicy,
				Ports: []string{
					fmt.Sprintf("%d:80", params.HTTPPort),
					fmt.Sprintf("%d:81", params.AdminPort),
					fmt.Sprintf("%d:443", params.HTTPSPort),
				},
				Volumes: []string{
					params.DataDir + ":/data",
					params.LetsEncryptDir + ":/etc/letsencrypt",
				},
			},
		},
	}

	return marshalAndValidate(doc)
}

// marshalAndValidate marshals the descriptor and round-trips it through the
// compose loader so a bad parameterization is caught before anything
// touches disk.
func marshalAndValidate(doc descriptor) ([]byte, error) {
	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, NewRenderError("", "failed to marshal descriptor", err)
	}
	if err := Validate(out); err != nil {
		return nil, err
	}
	return out, nil
}

// Validate checks that the descriptor is a loadable Compose project with
// exactly the shape the deploy step expects.
func Validate(content []byte) error {
	var dict map[string]interface{}
	if err := yaml.Unmarshal(content, &dict); err != nil || dict == nil {
		return NewRenderError("", "invalid YAML syntax", ErrInvalidYAML)
	}

	project, err := loader.LoadWithContext(context.Background(), types.ConfigDetails{
		ConfigFiles: []types.ConfigFile{
			{
				Content: content,
				Config:  dict,
			},
		},
	}, func(opts *loader.Options) {
		opts.SetProjectName("dockhand-proxy", false)
		opts.SkipValidation = false
		opts.SkipInterpolation = false
		// In-memory descriptor, nothing to resolve on disk
		opts.SkipNormalization = true
		opts.SkipExtends = true
	})
	if err != nil {
		return NewRenderError("", err.Error(), ErrInvalidDescriptor)
	}

	if len(project.Services) != 1 {
		return NewRenderError("services", "descriptor must define exactly one service", ErrInvalidDescriptor)
	}

	return nil
}

// validateParams rejects parameterizations the descriptor shape cannot hold.
func validateParams(params ProxyParams) error {
	if params.Image == "" {
		return NewRenderError("image", "image is required", ErrInvalidParams)
	}
	if params.ServiceName == "" {
		return NewRenderError("service", "service name is required", ErrInvalidParams)
	}
	for field, port := range map[string]int{
		"http_port":  params.HTTPPort,
		"admin_port": params.AdminPort,
		"https_port": params.HTTPSPort,
	} {
		if port < 1 || port > 65535 {
			return NewRenderError(field, fmt.Sprintf("port %d out of range", port), ErrInvalidParams)
		}
	}
	if params.DataDir == "" || params.LetsEncryptDir == "" {
		return NewRenderError("volumes", "bind directories are required", ErrInvalidParams)
	}
	return nil
}
