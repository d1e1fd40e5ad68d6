package auth

import "golang.org/x/crypto/bcrypt"

// bcryptCost is a variable so tests can lower it.
var bcryptCost = bcrypt.DefaultCost

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	return string(bytes), err
}

func checkPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
