package config

// Provider selects the speech synthesis backend.
type Provider string

const (
	ProviderOpenAI     Provider = "openai"
	ProviderElevenLabs Provider = "elevenlabs"
	ProviderExec       Provider = "exec"
)

func (p Provider) IsValid() bool {
	switch p {
	case ProviderOpenAI, ProviderElevenLabs, ProviderExec:
		return true
	}
	return false
}

// DatabaseDriver selects the conversion record backend.
type DatabaseDriver string

const (
	DriverSQLite DatabaseDriver = "sqlite"
	DriverMySQL  DatabaseDriver = "mysql"
)

func (d DatabaseDriver) IsValid() bool {
	switch d {
	case DriverSQLite, DriverMySQL:
		return true
	}
	return false
}

// StorageDriver selects where artifacts are persisted.
type StorageDriver string

const (
	StorageLocal StorageDriver = "local"
	StorageS3    StorageDriver = "s3"
)

func (s StorageDriver) IsValid() bool {
	switch s {
	case StorageLocal, StorageS3:
		return true
	}
	return false
}

// Environment represents the runtime environment
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

func (e Environment) IsValid() bool {
	switch e {
	case EnvDevelopment, EnvProduction:
		return true
	}
	return false
}

func (e Environment) IsProduction() bool {
	return e == EnvProduction
}
