package model

import "time"

const UserTableName = "users"

// User account record. Password holds the bcrypt hash and never leaves the server.
type User struct {
	ID         string    `bson:"_id,omitempty" json:"_id"`
	Email      string    `bson:"email" json:"email"`
	FullName   string    `bson:"full_name" json:"fullName"`
	Password   string    `bson:"password" json:"-"`
	Bio        string    `bson:"bio" json:"bio"`
	ProfilePic string    `bson:"profile_pic" json:"profilePic"`
	CreateTime time.Time `bson:"create_time" json:"-"`
	UpdateTime time.Time `bson:"update_time" json:"-"`
}

func (User) TableName() string { return UserTableName }
