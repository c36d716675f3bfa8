package domain

import "time"

// FreeRADIUS attribute names written by the reconciliation jobs.
const (
	AttrCleartextPassword = "Cleartext-Password"
	AttrFramedIPAddress   = "Framed-IP-Address"
)

// RadAcct maps the accounting table. The RADIUS server writes
// acctstarttime/acctstoptime as wall-clock values in its own zone.
type RadAcct struct {
	RadAcctID       int64      `gorm:"column:radacctid;primaryKey;autoIncrement"`
	AcctSessionID   string     `gorm:"column:acctsessionid;type:varchar(64);not null;default:''"`
	AcctUniqueID    string     `gorm:"column:acctuniqueid;type:varchar(32);not null;default:''"`
	Username        string     `gorm:"column:username;type:varchar(64);not null;default:'';index:idx_radacct_username_start,priority:1"`
	NASIPAddress    string     `gorm:"column:nasipaddress;type:varchar(45);not null;default:''"`
	AcctStartTime   *time.Time `gorm:"column:acctstarttime;index:idx_radacct_username_start,priority:2"`
	AcctStopTime    *time.Time `gorm:"column:acctstoptime"`
	FramedIPAddress string     `gorm:"column:framedipaddress;type:varchar(45);not null;default:''"`
}

func (RadAcct) TableName() string { return "radacct" }

type RadCheck struct {
	ID        int64  `gorm:"column:id;primaryKey;autoIncrement"`
	Username  string `gorm:"column:username;type:varchar(64);not null;default:'';index"`
	Attribute string `gorm:"column:attribute;type:varchar(64);not null;default:''"`
	Op        string `gorm:"column:op;type:varchar(2);not null;default:'=='"`
	Value     string `gorm:"column:value;type:varchar(253);not null;default:''"`
}

func (RadCheck) TableName() string { return "radcheck" }

type RadReply struct {
	ID        int64  `gorm:"column:id;primaryKey;autoIncrement"`
	Username  string `gorm:"column:username;type:varchar(64);not null;default:'';index"`
	Attribute string `gorm:"column:attribute;type:varchar(64);not null;default:''"`
	Op        string `gorm:"column:op;type:varchar(2);not null;default:'='"`
	Value     string `gorm:"column:value;type:varchar(253);not null;default:''"`
}

func (RadReply) TableName() string { return "radreply" }

type RadUserGroup struct {
	ID        int64  `gorm:"column:id;primaryKey;autoIncrement"`
	Username  string `gorm:"column:username;type:varchar(64);not null;default:'';index"`
	GroupName string `gorm:"column:groupname;type:varchar(64);not null;default:''"`
	Priority  int    `gorm:"column:priority;not null;default:1"`
}

func (RadUserGroup) TableName() string { return "radusergroup" }

type NAS struct {
	ID        int64  `gorm:"column:id;primaryKey;autoIncrement"`
	NASName   string `gorm:"column:nasname;type:varchar(128);not null;uniqueIndex"`
	ShortName string `gorm:"column:shortname;type:varchar(32)"`
	Secret    string `gorm:"column:secret;type:varchar(60);not null"`
}

func (NAS) TableName() string { return "nas" }

// Session is an accounting record with times normalized to UTC.
type Session struct {
	Username   string
	SessionID  string
	NASAddress string
	FramedIP   string
	StartedAt  time.Time
	StoppedAt  *time.Time
}

// IsolateRequest moves a subscriber to the restricted group.
type IsolateRequest struct {
	Username string
	Password string
	Group    string
	Priority int
}
