package store

import "gorm.io/gorm"

var ErrRecordNotFound = gorm.ErrRecordNotFound
