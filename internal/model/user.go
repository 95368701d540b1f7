// Package model はドメインモデルを定義する。
package model

import "time"

// User はメールアドレスを識別子とするアカウントを表す。
// パスワードはbcryptハッシュのみを保持し、平文は保存しない。
type User struct {
	ID           string
	Email        string
	PasswordHash string
	PhoneNumber  *string
	AddressID    *string
	IsStaff      bool
	IsActive     bool
	IsSuperuser  bool
	LastLogin    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Address はユーザーに紐づく住所を表す。
// 作成フック直後は全フィールドが空文字列で、後からユーザー操作で埋められる。
type Address struct {
	ID        string
	Street    string
	City      string
	State     string
	ZipCode   string
	Country   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
