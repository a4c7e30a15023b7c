package config

// ServerConfig configures the HTTP control surface (spec.md §6).
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// DatabaseConfig configures the Persistence Store's backing file.
type DatabaseConfig struct {
	// DataDir is the root directory for the sqlite file and log output.
	DataDir string `yaml:"data_dir"`
	// URL is the sqlite database path, conventionally <data_dir>/app.db.
	URL string `yaml:"url"`
}

// ReposConfig configures the Repository Manager's on-disk workspace.
type ReposConfig struct {
	// Dir is <repos_dir> from spec.md §6: "<repos_dir>/<repo_name>/…".
	Dir string `yaml:"dir"`
	// CredentialToken is injected into HTTPS remote URLs at clone/fetch time;
	// never persisted to the database or written to disk.
	CredentialToken string `yaml:"-"`
}
