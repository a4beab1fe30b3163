package fixtures

// Document is a YAML seed file describing the entities other subsystems own in
// production, plus the alerts and destinations that watch them.
//
// Money fields are decimal strings. Dates are YYYY-MM-DD or RFC 3339; bills and
// transactions may instead give an offset from the seeding time.
type Document struct {
	Users        []User        `yaml:"users"`
	Accounts     []Account     `yaml:"accounts"`
	Goals        []Goal        `yaml:"goals"`
	Budgets      []Budget      `yaml:"budgets"`
	Bills        []Bill        `yaml:"bills"`
	Transactions []Transaction `yaml:"transactions"`
	Alerts       []Alert       `yaml:"alerts"`
}

// User carries a user's delivery destinations.
type User struct {
	ID           string `yaml:"id"`
	Email        string `yaml:"email"`
	Phone        string `yaml:"phone"`
	EmailEnabled bool   `yaml:"email_enabled"`
	SMSEnabled   bool   `yaml:"sms_enabled"`
}

type Account struct {
	ID      string `yaml:"id"`
	UserID  string `yaml:"user_id"`
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	Balance string `yaml:"balance"`
}

type Goal struct {
	ID            string `yaml:"id"`
	UserID        string `yaml:"user_id"`
	Name          string `yaml:"name"`
	GoalType      string `yaml:"goal_type"`
	TargetAmount  string `yaml:"target_amount"`
	CurrentAmount string `yaml:"current_amount"`
	InitialValue  string `yaml:"initial_value,omitempty"`
}

type Budget struct {
	ID       string `yaml:"id"`
	UserID   string `yaml:"user_id"`
	Name     string `yaml:"name"`
	Category string `yaml:"category"`
	Amount   string `yaml:"amount"`
	Period   string `yaml:"period"`
}

type Bill struct {
	ID          string `yaml:"id"`
	UserID      string `yaml:"user_id"`
	Name        string `yaml:"name"`
	Amount      string `yaml:"amount"`
	Frequency   string `yaml:"frequency"`
	NextDueDate string `yaml:"next_due_date,omitempty"`
	DueInDays   *int   `yaml:"due_in_days,omitempty"`
}

type Transaction struct {
	ID          string  `yaml:"id"`
	UserID      string  `yaml:"user_id"`
	AccountID   string  `yaml:"account_id"`
	Amount      string  `yaml:"amount"`
	Merchant    *string `yaml:"merchant,omitempty"`
	Category    string  `yaml:"category"`
	Description string  `yaml:"description,omitempty"`
	Date        string  `yaml:"date,omitempty"`
	DaysAgo     *int    `yaml:"days_ago,omitempty"`
}

// Alert is an alert definition. Active defaults to true.
type Alert struct {
	ID            string         `yaml:"id"`
	UserID        string         `yaml:"user_id"`
	Kind          string         `yaml:"kind"`
	Name          string         `yaml:"name"`
	SourceType    string         `yaml:"source_type,omitempty"`
	SourceID      string         `yaml:"source_id,omitempty"`
	Conditions    map[string]any `yaml:"conditions"`
	EmailDelivery bool           `yaml:"email_delivery"`
	SMSDelivery   bool           `yaml:"sms_delivery"`
	Active        *bool          `yaml:"active,omitempty"`
}

// Summary counts what Apply wrote.
type Summary struct {
	Users         int `json:"users"`
	Accounts      int `json:"accounts"`
	Goals         int `json:"goals"`
	Budgets       int `json:"budgets"`
	Bills         int `json:"bills"`
	Transactions  int `json:"transactions"`
	Alerts        int `json:"alerts"`
	AlertsExisted int `json:"alerts_existed"`
}
