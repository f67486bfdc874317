package model

type RemoteSession struct {
	OwnerID     string
	ServiceURL  string
	AccessToken string
	Ctime       int64
	Mtime       int64
}
