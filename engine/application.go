package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/parallax/engine/core"
	"github.com/spaghettifunk/parallax/engine/renderer/metadata"
	"github.com/spaghettifunk/parallax/engine/renderer/views"
	"github.com/spaghettifunk/parallax/engine/systems"
	"gopkg.in/yaml.v3"
)

type WindowConfig struct {
	// Window starting position x axis, if applicable.
	PosX int `toml:"x" yaml:"x"`
	// Window starting position y axis, if applicable.
	PosY   int `toml:"y" yaml:"y"`
	Width  int `toml:"width" yaml:"width"`
	Height int `toml:"height" yaml:"height"`
	// The application name used in windowing
	Title string `toml:"title" yaml:"title"`
	// where the composed image starts inside the window, in pixels
	ViewportOffset [2]int `toml:"viewport_offset" yaml:"viewport_offset"`
}

// Angles are in degrees.
type CameraConfig struct {
	FOV         float32    `toml:"fov" yaml:"fov"`
	Near        float32    `toml:"near" yaml:"near"`
	Far         float32    `toml:"far" yaml:"far"`
	Eye         [3]float32 `toml:"eye" yaml:"eye"`
	Look        [3]float32 `toml:"look" yaml:"look"`
	Up          [3]float32 `toml:"up" yaml:"up"`
	EyeDistance float32    `toml:"eye_distance" yaml:"eye_distance"`
	Convergence float32    `toml:"convergence" yaml:"convergence"`
	// units per second for the movement keys
	MoveSpeed float32 `toml:"move_speed" yaml:"move_speed"`
	// degrees per second for the rotation keys
	TurnSpeed float32 `toml:"turn_speed" yaml:"turn_speed"`
}

type StereoConfig struct {
	Mode        string `toml:"mode" yaml:"mode"`
	Calibration bool   `toml:"calibration" yaml:"calibration"`
}

type ShadowConfig struct {
	Enabled bool    `toml:"enabled" yaml:"enabled"`
	Size    int     `toml:"size" yaml:"size"`
	FOV     float32 `toml:"fov" yaml:"fov"`
	// rotation of the light around Y
	LightAngle float32 `toml:"light_angle" yaml:"light_angle"`
}

type TrackerConfig struct {
	// empty disables the websocket tracker
	Addr string `toml:"addr" yaml:"addr"`
}

/**
 * @brief Everything the viewer reads at startup. Files are TOML or YAML, chosen by extension,
 * and only need to name the values they change.
 */
type ApplicationConfig struct {
	Window    WindowConfig  `toml:"window" yaml:"window"`
	Camera    CameraConfig  `toml:"camera" yaml:"camera"`
	Stereo    StereoConfig  `toml:"stereo" yaml:"stereo"`
	Shadow    ShadowConfig  `toml:"shadow" yaml:"shadow"`
	Tracker   TrackerConfig `toml:"tracker" yaml:"tracker"`
	AssetsDir string        `toml:"assets_dir" yaml:"assets_dir"`
	Watch     bool          `toml:"watch" yaml:"watch"`
	Workers   int           `toml:"workers" yaml:"workers"`
	LogLevel  string        `toml:"log_level" yaml:"log_level"`
	// font used by the overlays, empty for the built-in one
	Font string `toml:"font" yaml:"font"`
}

func DefaultApplicationConfig() *ApplicationConfig {
	return &ApplicationConfig{
		Window: WindowConfig{
			PosX:   100,
			PosY:   100,
			Width:  1280,
			Height: 720,
			Title:  "Parallax",
		},
		Camera: CameraConfig{
			FOV:         42,
			Near:        0.1,
			Far:         1000,
			Look:        [3]float32{0, 0, -1},
			Up:          [3]float32{0, 1, 0},
			EyeDistance: 0.065,
			Convergence: 1,
			MoveSpeed:   5,
			TurnSpeed:   45,
		},
		Stereo: StereoConfig{Mode: metadata.StereoModeNone.String()},
		Shadow: ShadowConfig{
			Enabled: true,
			Size:    1024,
			FOV:     25,
		},
		AssetsDir: ".",
		Workers:   4,
		LogLevel:  "info",
	}
}

/**
 * @brief Reads path over the defaults. The format follows the extension: .toml, .yaml or .yml.
 * The result is validated.
 */
func LoadApplicationConfig(path string) (*ApplicationConfig, error) {
	config := DefaultApplicationConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config %s: %w", path, core.ErrFileNotFound)
		}
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, config)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, config)
	default:
		return nil, fmt.Errorf("config %s: %w", path, core.ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return config, nil
}

func (c *ApplicationConfig) Validate() error {
	switch {
	case c.Window.Width <= 0 || c.Window.Height <= 0:
		return fmt.Errorf("window size %dx%d: %w", c.Window.Width, c.Window.Height, core.ErrInvalidConfig)
	case c.Camera.FOV <= 0 || c.Camera.FOV >= 180:
		return fmt.Errorf("camera fov %g: %w", c.Camera.FOV, core.ErrInvalidConfig)
	case c.Camera.Near <= 0 || c.Camera.Far <= c.Camera.Near:
		return fmt.Errorf("camera clip planes %g..%g: %w", c.Camera.Near, c.Camera.Far, core.ErrInvalidConfig)
	case c.Camera.EyeDistance < 0:
		return fmt.Errorf("eye distance %g: %w", c.Camera.EyeDistance, core.ErrInvalidConfig)
	case c.Camera.Convergence <= 0:
		return fmt.Errorf("convergence %g: %w", c.Camera.Convergence, core.ErrInvalidConfig)
	case mgl32.Vec3(c.Camera.Look).Len() == 0 || mgl32.Vec3(c.Camera.Up).Len() == 0:
		return fmt.Errorf("camera look and up must not be zero: %w", core.ErrInvalidConfig)
	case c.Shadow.Size <= 0:
		return fmt.Errorf("shadow size %d: %w", c.Shadow.Size, core.ErrInvalidConfig)
	case c.Shadow.FOV <= 0 || c.Shadow.FOV >= 180:
		return fmt.Errorf("shadow fov %g: %w", c.Shadow.FOV, core.ErrInvalidConfig)
	case c.Workers < 1:
		return fmt.Errorf("workers %d: %w", c.Workers, core.ErrInvalidConfig)
	}
	if _, ok := metadata.ParseStereoMode(c.Stereo.Mode); !ok {
		return fmt.Errorf("stereo mode '%s': %w", c.Stereo.Mode, core.ErrInvalidConfig)
	}
	if _, err := core.ParseLogLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log level '%s': %w", c.LogLevel, core.ErrInvalidConfig)
	}
	return nil
}

// SystemConfig translates the config for the system manager.
func (c *ApplicationConfig) SystemConfig() systems.SystemManagerConfig {
	mode, _ := metadata.ParseStereoMode(c.Stereo.Mode)
	sc := systems.DefaultSystemManagerConfig()
	sc.AssetsDir = c.AssetsDir
	sc.Watch = c.Watch
	sc.Workers = c.Workers
	sc.Compositor.Width = c.Window.Width
	sc.Compositor.Height = c.Window.Height
	sc.Compositor.ShadowSize = c.Shadow.Size
	sc.Compositor.Shadows = c.Shadow.Enabled
	sc.Compositor.Mode = mode
	sc.Compositor.ViewportOffset = c.Window.ViewportOffset
	return sc
}

// StereoCamera builds the initial camera of the compositor.
func (c *ApplicationConfig) StereoCamera() views.StereoCamera {
	cam := views.DefaultStereoCamera()
	cam.Eye = mgl32.Vec3(c.Camera.Eye)
	cam.Look = mgl32.Vec3(c.Camera.Look)
	cam.Up = mgl32.Vec3(c.Camera.Up)
	cam.FOV = mgl32.DegToRad(c.Camera.FOV)
	cam.Near = c.Camera.Near
	cam.Far = c.Camera.Far
	cam.EyeDistance = c.Camera.EyeDistance
	cam.Convergence = c.Camera.Convergence
	return cam
}

func (c *ApplicationConfig) LightCamera() views.LightCamera {
	light := views.DefaultLightCamera()
	light.FOV = mgl32.DegToRad(c.Shadow.FOV)
	light.Angle = mgl32.DegToRad(c.Shadow.LightAngle)
	return light
}
