package sink

// Backend names for Config.Backend.
const (
	BackendObject   = "object"
	BackendDatabase = "database"
)

// Config selects and parameterizes the sink store backend.
type Config struct {
	// Backend is "object" (CSV object in a bucket) or "database" (MySQL).
	Backend string `mapstructure:"backend" default:"object"`
	// Object is the CSV object name used by the object backend.
	Object string `mapstructure:"object" default:"unified.csv"`
	// Table is the table name used by the database backend.
	Table string `mapstructure:"table" default:"unified_rows"`
}
