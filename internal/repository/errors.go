package repository

import "errors"

var (
	ErrNotFound   = errors.New("не найдено")
	ErrInvalidKey = errors.New("некорректный ключ")
)
