// Separate package is workaround to import cycles.
package ui_config

type Config struct {
	TickMs    int `hcl:"tick_ms"`
	IdleSec   int `hcl:"idle_sec"`
	SubmitSec int `hcl:"submit_sec"`
	DoneMs    int `hcl:"done_ms"`
	ErrorMs   int `hcl:"error_ms"`

	MsgEnter       string `hcl:"msg_enter"`
	MsgHint        string `hcl:"msg_hint"`
	MsgNumber      string `hcl:"msg_number"` // %s = buffer padded with filler
	MsgConfirm     string `hcl:"msg_confirm"`
	MsgConfirmHint string `hcl:"msg_confirm_hint"`
	MsgSending     string `hcl:"msg_sending"`
	MsgDone        string `hcl:"msg_done"`
	MsgError       string `hcl:"msg_error"`
}
