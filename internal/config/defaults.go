package config

const (
	defaultLogDir            = "~/.local/share/mediasync/logs"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultLogRetentionDays  = 30
	defaultOrphanPolicy      = OrphanPolicyPrompt
	defaultUnlockBinary      = "um"
	defaultUnlockTimeout     = 300
	defaultWatchDebounceMS   = 1500
	defaultHistoryEnabled    = true
	defaultHistoryKeepRecent = 200
)

// Orphan handling policies for derived files without a matching source.
const (
	OrphanPolicyPrompt = "prompt"
	OrphanPolicyNever  = "never"
	OrphanPolicyAlways = "always"
)

// DefaultSourceExtensions lists the encrypted container formats treated as
// source artifacts in the working directory.
var DefaultSourceExtensions = []string{
	".ncm", ".qmc0", ".qmc3", ".qmcflac", ".qmcogg", ".mgg", ".mflac",
	".bkcmp3", ".bkcflac", ".tm0", ".tm3", ".kwm", ".kgm",
}

// DefaultTempExtensions lists incomplete-transfer artifacts left behind by
// browsers and download managers.
var DefaultTempExtensions = []string{".tmp", ".crdownload", ".opdownload"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir: defaultLogDir,
		},
		Sources: Sources{
			Extensions:     append([]string(nil), DefaultSourceExtensions...),
			TempExtensions: append([]string(nil), DefaultTempExtensions...),
		},
		Archive: Archive{
			Orphans: defaultOrphanPolicy,
		},
		Unlock: Unlock{
			Binary:         defaultUnlockBinary,
			TimeoutSeconds: defaultUnlockTimeout,
		},
		Watch: Watch{
			DebounceMillis: defaultWatchDebounceMS,
		},
		History: History{
			Enabled:    defaultHistoryEnabled,
			KeepRecent: defaultHistoryKeepRecent,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
