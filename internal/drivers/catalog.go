package drivers

// Built-in driver identifiers.
const (
	Postgres   ID = "postgres"
	MySQL      ID = "mysql"
	MySQL2     ID = "mysql2"
	SQLServer  ID = "sqlserver"
	SQLite     ID = "sqlite"
	Redshift   ID = "redshift"
	Vertica    ID = "vertica"
	Snowflake  ID = "snowflake"
	ClickHouse ID = "clickhouse"
	Crate      ID = "crate"
	Trino      ID = "trino"
	Presto     ID = "presto"
	Drill      ID = "drill"
	Athena     ID = "athena"
	BigQuery   ID = "bigquery"
	Pinot      ID = "pinot"
	ODBC       ID = "unixodbc"
)

// Builtin returns the descriptors for every driver shipped with queryhub.
func Builtin() []Descriptor {
	return []Descriptor{
		{ID: Postgres, Title: "PostgreSQL", SupportsClient: true, Aliases: []string{"postgresql", "pg"}, SortOrder: 10},
		{ID: MySQL, Title: "MySQL", SupportsClient: true, Aliases: []string{"mariadb"}, SortOrder: 20},
		{ID: MySQL2, Title: "MySQL (mysql2)", SupportsClient: true, SortOrder: 21},
		{ID: SQLServer, Title: "SQL Server", SupportsClient: true, Aliases: []string{"mssql"}, SortOrder: 30},
		{ID: SQLite, Title: "SQLite", SupportsClient: true, Aliases: []string{"sqlite3"}, SortOrder: 40},
		{ID: Redshift, Title: "Amazon Redshift", SupportsClient: true, SortOrder: 50},
		{ID: Vertica, Title: "Vertica", SupportsClient: true, SortOrder: 60},
		{ID: Snowflake, Title: "Snowflake", SupportsClient: true, SortOrder: 70},
		{ID: ODBC, Title: "unixODBC", SupportsClient: true, Aliases: []string{"odbc"}, SortOrder: 80},
		{ID: ClickHouse, Title: "ClickHouse", SortOrder: 100},
		{ID: Crate, Title: "CrateDB", SortOrder: 110},
		{ID: Drill, Title: "Apache Drill", SortOrder: 120},
		{ID: Pinot, Title: "Apache Pinot", SortOrder: 130},
		{ID: Trino, Title: "Trino", Asynchronous: true, SortOrder: 200},
		{ID: Presto, Title: "Presto", Asynchronous: true, SortOrder: 210},
		{ID: Athena, Title: "Amazon Athena", Asynchronous: true, SortOrder: 220},
		{ID: BigQuery, Title: "Google BigQuery", Asynchronous: true, SortOrder: 230},
	}
}

// NewBuiltinRegistry returns a registry pre-populated with Builtin.
func NewBuiltinRegistry() *Registry {
	r := NewRegistry()
	for _, desc := range Builtin() {
		r.MustRegister(desc)
	}
	return r
}
