package config

// Config is the top-level orchestrator configuration parsed from forge YAML.
type Config struct {
	Tool          string  `yaml:"tool"`
	Model         string  `yaml:"model"`
	MaxIterations int     `yaml:"max_iterations"`
	Cycles        Cycles  `yaml:"cycles"`
	Sandbox       Sandbox `yaml:"sandbox"`
	Paths         Paths   `yaml:"paths"`
}

// Cycles holds the retry ceilings and the policies workers are told about
// when a ceiling is reached.
type Cycles struct {
	MaxReview          int  `yaml:"max_review"`
	MaxQA              int  `yaml:"max_qa"`
	SkipAfterMaxReview bool `yaml:"skip_after_max_review"`
	SkipAfterMaxQA     bool `yaml:"skip_after_max_qa"`
}

// Sandbox configures the isolated execution environment workers run in.
// Disabled mode runs workers directly against the shared tree.
type Sandbox struct {
	Disabled      bool   `yaml:"disabled"`
	Image         string `yaml:"image"`
	KeepOnSuccess bool   `yaml:"keep_on_success"`
}

// Paths holds the file locations the orchestrator reads and writes.
type Paths struct {
	State        string `yaml:"state"`
	Requirements string `yaml:"requirements"`
	DB           string `yaml:"db"`
	Templates    string `yaml:"templates"`
}
