package models

import "time"

// User представляет учетную запись, под которой хранится буфер обмена.
// Для ядра хранилища пользователь - это просто непрозрачный ключ (ID).
type User struct {
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"` // Хеш пароля наружу не отдаем
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Credentials - пара логин/пароль, общая для регистрации и входа.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Empty сообщает, что хотя бы одно из полей не заполнено.
func (c Credentials) Empty() bool {
	return c.Username == "" || c.Password == ""
}

// RegisterRequest - тело запроса на регистрацию.
type RegisterRequest = Credentials

// LoginRequest - тело запроса на вход.
type LoginRequest = Credentials

// LoginResponse - ответ на успешный вход.
type LoginResponse struct {
	Token string `json:"token"`
}
