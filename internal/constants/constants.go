package constants

const (
	AppName = "identityforge"
	Version = "v0.1.0"

	// DefaultDBPath is where the store file lives unless overridden by flag, env or config file.
	DefaultDBPath     = "~/.config/identityforge/identityforge.db"
	DefaultConfigPath = "~/.config/identityforge/config.yaml"

	EnvDBPath = "IDENTITYFORGE_DB"
	EnvDebug  = "IDENTITYFORGE_DEBUG"

	// DefaultHabitName names the habit auto-created when a vote is cast
	// against an identity that has no active habit yet.
	DefaultHabitName = "Default Habit"

	// DefaultHistoryLimit caps vote history and per-habit vote listings.
	DefaultHistoryLimit = 200

	// DayMillis is the length of one day in milliseconds.
	DayMillis int64 = 86_400_000

	// DashboardWindowDays is the trailing window used for votesLast7Days.
	DashboardWindowDays = 7

	// MaxNameLength bounds identity and habit names.
	MaxNameLength = 200

	// Log rotation
	LogDirName    = "logs"
	LogMaxSizeMB  = 10
	LogMaxBackups = 3
	LogMaxAgeDays = 28

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "identityforge-"
	BackupFileSuffix = ".db"
)
