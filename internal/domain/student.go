package domain

type Student struct {
	ID     int64
	Name   string
	RollNo string
	RoomNo string
	Phone  string
}

type Profile struct {
	Username string
	Name     string
	Email    string
	Role     string
}
