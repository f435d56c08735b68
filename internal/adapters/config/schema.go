package config

// Kilnfile represents the structure of the kiln.yaml configuration file.
type Kilnfile struct {
	Version    string              `yaml:"version"`
	Root       string              `yaml:"root"`
	Options    OptionsDTO          `yaml:"options"`
	LiveReload LiveReloadDTO       `yaml:"livereload"`
	Debounce   string              `yaml:"debounce"`
	Tasks      map[string]*TaskDTO `yaml:"tasks"`
	Watch      []WatchDTO          `yaml:"watch"`
}

// OptionsDTO holds the pipeline switches. Unset fields keep their defaults.
type OptionsDTO struct {
	Minify                 *bool `yaml:"minify"`
	AppendLiveReloadScript *bool `yaml:"appendLiveReloadScript"`
}

// LiveReloadDTO configures the live-reload server.
type LiveReloadDTO struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// TaskDTO represents a task definition in the configuration.
type TaskDTO struct {
	Kind      string   `yaml:"kind"`
	Src       []string `yaml:"src"`
	Base      string   `yaml:"base"`
	Dest      string   `yaml:"dest"`
	Out       string   `yaml:"out"`
	Compiler  []string `yaml:"compiler"`
	Paths     []string `yaml:"paths"`
	DependsOn []string `yaml:"dependsOn"`
	Message   string   `yaml:"message"`
}

// WatchDTO maps path patterns to the tasks re-run when they change.
type WatchDTO struct {
	Patterns []string `yaml:"patterns"`
	Tasks    []string `yaml:"tasks"`
	Reload   bool     `yaml:"reload"`
}
