package tuning

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"citytiles.dev/internal/sim/input"
)

type Tuning struct {
	TickRateHz int `yaml:"tick_rate_hz"`

	Storage  Storage  `yaml:"storage"`
	Viewport Viewport `yaml:"viewport"`
	Camera   Camera   `yaml:"camera"`

	Keymap input.Keymap `yaml:"keymap"`
}

type Storage struct {
	// LayoutPath is the single persisted layout document.
	LayoutPath string `yaml:"layout_path"`
	BackupDir  string `yaml:"backup_dir"`
	// BackupKeep is how many backups survive a prune; 0 disables backups.
	BackupKeep int    `yaml:"backup_keep"`
	IndexDB    string `yaml:"index_db"`
	EditLogDir string `yaml:"edit_log_dir"`
}

type Viewport struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

type Camera struct {
	Eye     [3]float64 `yaml:"eye"`
	Target  [3]float64 `yaml:"target"`
	FovYDeg float64    `yaml:"fovy_deg"`
}

func Defaults() Tuning {
	return Tuning{
		TickRateHz: 60,
		Storage: Storage{
			LayoutPath: "data.json",
			BackupDir:  "data/backups",
			BackupKeep: 10,
			IndexDB:    "data/index.sqlite",
			EditLogDir: "data/editlog",
		},
		Viewport: Viewport{Width: 1280, Height: 720},
		Camera: Camera{
			Eye:     [3]float64{30, 30, 30},
			Target:  [3]float64{0, 0, 0},
			FovYDeg: 45,
		},
		Keymap: input.DefaultKeymap(),
	}
}

// Load reads a tuning file over the defaults. An empty path returns the
// defaults.
func Load(path string) (Tuning, error) {
	if strings.TrimSpace(path) == "" {
		t := Defaults()
		return t, t.Validate()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Defaults(), err
	}
	t, err := Decode(bytes.NewReader(raw))
	if err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

// Decode reads YAML from r. Unknown keys are rejected; omitted keys keep
// their defaults.
func Decode(r io.Reader) (Tuning, error) {
	t := Defaults()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil && !errors.Is(err, io.EOF) {
		return Defaults(), err
	}
	t.Normalize()
	if err := t.Validate(); err != nil {
		return t, err
	}
	return t, nil
}

func (t *Tuning) Normalize() {
	t.Keymap = t.Keymap.Merge(input.DefaultKeymap())
	t.Storage.LayoutPath = strings.TrimSpace(t.Storage.LayoutPath)
	t.Storage.BackupDir = strings.TrimSpace(t.Storage.BackupDir)
	t.Storage.IndexDB = strings.TrimSpace(t.Storage.IndexDB)
	t.Storage.EditLogDir = strings.TrimSpace(t.Storage.EditLogDir)
}

func (t Tuning) Validate() error {
	var errs []error
	if t.TickRateHz <= 0 || t.TickRateHz > 1000 {
		errs = append(errs, fmt.Errorf("tick_rate_hz %d out of range (1..1000)", t.TickRateHz))
	}
	if t.Storage.LayoutPath == "" {
		errs = append(errs, errors.New("storage.layout_path is required"))
	}
	if t.Storage.BackupKeep < 0 {
		errs = append(errs, fmt.Errorf("storage.backup_keep %d must be >= 0", t.Storage.BackupKeep))
	}
	if t.Storage.BackupKeep > 0 && t.Storage.BackupDir == "" {
		errs = append(errs, errors.New("storage.backup_dir is required when backup_keep > 0"))
	}
	if t.Viewport.Width <= 0 || t.Viewport.Height <= 0 {
		errs = append(errs, fmt.Errorf("viewport %vx%v must be positive", t.Viewport.Width, t.Viewport.Height))
	}
	if t.Camera.FovYDeg <= 0 || t.Camera.FovYDeg >= 180 {
		errs = append(errs, fmt.Errorf("camera.fovy_deg %v out of range (0..180)", t.Camera.FovYDeg))
	}
	if t.Camera.Eye == t.Camera.Target {
		errs = append(errs, errors.New("camera.eye and camera.target coincide"))
	}
	if t.Camera.Eye[1] <= 0 {
		errs = append(errs, fmt.Errorf("camera.eye y=%v must be above the ground plane", t.Camera.Eye[1]))
	}
	if err := t.Keymap.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// FovY returns the vertical field of view in radians.
func (c Camera) FovY() float64 { return c.FovYDeg * math.Pi / 180 }

// Aspect returns width/height.
func (v Viewport) Aspect() float64 { return v.Width / v.Height }
