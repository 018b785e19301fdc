package constants

// File names used by taskmcp for state persistence.
const (
	// DatasetExtension is appended to a workspace name to form its dataset file.
	DatasetExtension = ".db"

	// ActiveRecordFileName is the JSON record naming the active workspace.
	ActiveRecordFileName = "workspace_config.json"

	// RegistryLockFileName serializes workspace lifecycle operations across processes.
	RegistryLockFileName = ".registry.lock"
)

// Log file names.
const (
	// CLILogFileName is the name of the rotating log file.
	// This file is located in ~/.taskmcp/logs/taskmcp.log
	CLILogFileName = "taskmcp.log"

	// LogMaxSizeMB is the size at which the log file is rotated.
	LogMaxSizeMB = 10

	// LogMaxBackups is the number of rotated log files kept.
	LogMaxBackups = 3

	// LogMaxAgeDays is how long rotated log files are kept.
	LogMaxAgeDays = 28

	// LogCompress gzips rotated log files.
	LogCompress = true
)

// Configuration file names.
const (
	// GlobalConfigName is the name of the global configuration file.
	// This file is located in the taskmcp home directory.
	GlobalConfigName = "config.yaml"

	// ProjectConfigDir is the directory holding project-level configuration.
	ProjectConfigDir = ".taskmcp"

	// EnvPrefix prefixes every environment override (TASKMCP_SERVER_PORT).
	EnvPrefix = "TASKMCP"

	// HomeEnvVar overrides the taskmcp home directory.
	HomeEnvVar = "TASKMCP_HOME"
)
