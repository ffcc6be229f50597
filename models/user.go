// models/user.go
package models

import (
	"errors"
	"time"
)

// UserType distinguishes donors from institution accounts.
type UserType string

const (
	UserDonor       UserType = "donor"
	UserInstitution UserType = "institution"
)

// User represents a platform user.
type User struct {
	ID           string    `bson:"id" json:"id"`
	Name         string    `bson:"name" json:"name"`
	Email        string    `bson:"email" json:"email"`
	Phone        string    `bson:"phone" json:"phone"`
	Type         UserType  `bson:"userType" json:"type"`
	CPF          string    `bson:"cpf,omitempty" json:"cpf,omitempty"`
	CNPJ         string    `bson:"cnpj,omitempty" json:"cnpj,omitempty"`
	Avatar       string    `bson:"avatar,omitempty" json:"avatar,omitempty"`
	Address      Address   `bson:"address" json:"address"`
	PasswordHash string    `bson:"passwordHash" json:"-"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updatedAt"`
}

// ValidateDocument enforces one tax document per role: CPF for donors, CNPJ for institutions.
func (u User) ValidateDocument() error {
	switch u.Type {
	case UserDonor:
		if u.CPF == "" || u.CNPJ != "" {
			return errors.New("donors must provide a CPF and no CNPJ")
		}
	case UserInstitution:
		if u.CNPJ == "" || u.CPF != "" {
			return errors.New("institutions must provide a CNPJ and no CPF")
		}
	default:
		return errors.New("unknown user type")
	}
	return nil
}
