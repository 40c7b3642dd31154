package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleUser      = "user"
	RoleAdmin     = "admin"
	RoleModerator = "moderator"

	DefaultCredit      = 500
	DefaultCountryCode = "MA"
)

type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`

	Name        string `bson:"name" json:"name"`
	Email       string `bson:"email" json:"email"`
	Phone       string `bson:"phone" json:"phone"`
	Password    string `bson:"password" json:"-"`
	CountryCode string `bson:"country_code" json:"country_code"`

	// Snapshot of the 1Confirmed account this user is linked to.
	ConfirmedUserID *int64 `bson:"confirmed_user_id,omitempty" json:"confirmed_user_id"`
	ConfirmedToken  string `bson:"confirmed_token,omitempty" json:"-"`

	Language                    *string    `bson:"language" json:"language"`
	PhoneVerifiedAt             *time.Time `bson:"phone_verified_at" json:"phone_verified_at"`
	TwoFactorEnabled            bool       `bson:"two_factor_enabled" json:"two_factor_enabled"`
	TwoFactorVerified           bool       `bson:"two_factor_verified" json:"two_factor_verified"`
	FirstMessageWizardCompleted bool       `bson:"first_message_wizard_completed" json:"first_message_wizard_completed"`

	Roles        []string            `bson:"roles" json:"roles"`
	Credit       int                 `bson:"credit" json:"credit"`
	Subscription *primitive.ObjectID `bson:"subscription" json:"subscription"`
	Accounts     []interface{}       `bson:"accounts" json:"accounts"`
	CustomCredit []string            `bson:"custom_credit" json:"custom_credit"`

	AquariumData AquariumData `bson:"aquarium_data" json:"aquarium_data"`
}

// AquariumData is kept for documents written by earlier releases. Nothing reads it.
type AquariumData struct {
	Tanks   []Tank   `bson:"tanks" json:"tanks"`
	Sensors []Sensor `bson:"sensors" json:"sensors"`
}

type Tank struct {
	Name   string  `bson:"name" json:"name"`
	Size   float64 `bson:"size" json:"size"`
	Type   string  `bson:"type" json:"type"`
	Status string  `bson:"status" json:"status"`
}

type Sensor struct {
	Type      string    `bson:"type" json:"type"`
	Value     float64   `bson:"value" json:"value"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

type CreditBalance struct {
	ID     string `json:"id"`
	Credit int    `json:"credit"`
}

// UserResponse is the public profile payload returned by register, login and profile reads.
type UserResponse struct {
	ID                          string              `json:"id"`
	Name                        string              `json:"name"`
	Email                       string              `json:"email"`
	Phone                       string              `json:"phone"`
	Language                    *string             `json:"language"`
	PhoneVerifiedAt             *time.Time          `json:"phone_verified_at"`
	TwoFactorEnabled            bool                `json:"two_factor_enabled"`
	TwoFactorVerified           bool                `json:"two_factor_verified"`
	FirstMessageWizardCompleted bool                `json:"first_message_wizard_completed"`
	Roles                       []string            `json:"roles"`
	Credit                      CreditBalance       `json:"credit"`
	Subscription                *primitive.ObjectID `json:"subscription"`
	CRAccount                   interface{}         `json:"cr_account"`
	Accounts                    []interface{}       `json:"accounts"`
	CustomCredit                []string            `json:"custom_credit"`
	Token                       string              `json:"token,omitempty"`
	ConfirmedToken              string              `json:"confirmed_token,omitempty"`
	ConfirmedUserID             *int64              `json:"confirmed_user_id"`
}

// Response builds the public payload. token is the local JWT and may be empty.
func (u *User) Response(token string) UserResponse {
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	accounts := u.Accounts
	if accounts == nil {
		accounts = []interface{}{}
	}
	custom := u.CustomCredit
	if custom == nil {
		custom = []string{}
	}
	return UserResponse{
		ID:                          u.ID.Hex(),
		Name:                        u.Name,
		Email:                       u.Email,
		Phone:                       u.Phone,
		Language:                    u.Language,
		PhoneVerifiedAt:             u.PhoneVerifiedAt,
		TwoFactorEnabled:            u.TwoFactorEnabled,
		TwoFactorVerified:           u.TwoFactorVerified,
		FirstMessageWizardCompleted: u.FirstMessageWizardCompleted,
		Roles:                       roles,
		Credit:                      CreditBalance{ID: u.ID.Hex(), Credit: u.Credit},
		Subscription:                u.Subscription,
		Accounts:                    accounts,
		CustomCredit:                custom,
		Token:                       token,
		ConfirmedToken:              u.ConfirmedToken,
		ConfirmedUserID:             u.ConfirmedUserID,
	}
}

func (u *User) HasConfirmedAccount() bool {
	return u.ConfirmedToken != ""
}
