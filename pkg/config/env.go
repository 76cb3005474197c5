package config

const EnvPrefix = "IMIQ"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	StoreDriverExcel  = "excel"
	StoreDriverSQL    = "sql"
	StoreDriverMemory = "memory"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	DefaultTimezone = "Asia/Kolkata"
)

// Variable names quoted in validation errors.
const (
	EnvStoreDriver    = "IMIQ_STORE_DRIVER"
	EnvStoreExcelPath = "IMIQ_STORE_EXCEL_PATH"
	EnvDBDriver       = "IMIQ_DB_DRIVER"
	EnvDBDSN          = "IMIQ_DB_DSN"
	EnvTimezone       = "IMIQ_TIMEZONE"
)
