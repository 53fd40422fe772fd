package model

// PlaceholderStaffName names the staff row created when a note is written
// before any staff member exists.
const PlaceholderStaffName = "未設定スタッフ"

type Staff struct {
	Base
	Name string `db:"name" json:"name"`
}
