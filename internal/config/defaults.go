package config

const (
	defaultConfigPath        = "~/.config/winfp/config.toml"
	defaultServiceName       = "WbioSrvc"
	defaultPollIntervalMS    = 500
	defaultPollAttempts      = 30
	defaultDatabaseDir       = `C:\Windows\System32\WinBioDatabase`
	defaultDatabaseExtension = ".DAT"
	defaultRegistryKey       = `SYSTEM\CurrentControlSet\Services\WbioSrvc\Databases`
	defaultMaxAttempts       = 20
	defaultHistoryPath       = "~/.local/share/winfp/history.db"
	defaultPowerShell        = "powershell"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Service: Service{
			Name:           defaultServiceName,
			PollIntervalMS: defaultPollIntervalMS,
			PollAttempts:   defaultPollAttempts,
		},
		Storage: Storage{
			DatabaseDir:       defaultDatabaseDir,
			DatabaseExtension: defaultDatabaseExtension,
			RegistryKey:       defaultRegistryKey,
		},
		Enrollment: Enrollment{
			MaxAttempts: defaultMaxAttempts,
		},
		History: History{
			Enabled: true,
			Path:    defaultHistoryPath,
		},
		Diagnostics: Diagnostics{
			PowerShell: defaultPowerShell,
		},
	}
}
