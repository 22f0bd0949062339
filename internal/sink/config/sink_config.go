// Separate package is workaround to import cycles.
package sink_config

const (
	DriverNoop   = "noop"
	DriverMqtt   = "mqtt"
	DriverSheets = "sheets"
)

type Config struct {
	Driver     string `hcl:"driver"`
	TerminalId int    `hcl:"terminal_id"`
	LogDebug   bool   `hcl:"log_debug"`

	Mqtt struct {
		Broker         string `hcl:"broker"`
		TopicPrefix    string `hcl:"topic_prefix"`
		ClientId       string `hcl:"client_id"`
		Username       string `hcl:"username"`
		Password       string `hcl:"password"` // secret
		KeepaliveSec   int    `hcl:"keepalive_sec"`
		ConnectTimeout int    `hcl:"connect_timeout_sec"`
		LogDebug       bool   `hcl:"log_debug"`
	} `hcl:"mqtt"`

	Sheets struct {
		CredentialsFile string `hcl:"credentials_file"` // secret
		SpreadsheetId   string `hcl:"spreadsheet_id"`
		Range           string `hcl:"range"`
		// for tests and proxies
		Endpoint string `hcl:"endpoint"`
	} `hcl:"sheets"`
}
