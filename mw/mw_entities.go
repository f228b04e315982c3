package mw

import (
	"encoding/json"

	"dentalscreen-api/constants"
	"dentalscreen-api/utils"
)

type AuthClaim struct {
	Exp          int64  `json:"exp"`
	Iat          int    `json:"iat"`
	AuthTime     int    `json:"auth_time"`
	Jti          string `json:"jti"`
	Iss          string `json:"iss"`
	Aud          string `json:"aud"`
	Sub          string `json:"sub"`
	Typ          string `json:"typ"`
	Azp          string `json:"azp"`
	SessionState string `json:"session_state"`
	Acr          string `json:"acr"`
	RealmAccess  struct {
		Roles []string `json:"roles"`
	} `json:"realm_access"`
	ResourceAccess    map[string]interface{} `json:"resource_access"`
	Scope             string                 `json:"scope"`
	RealmRoles        []string               `json:"realm_roles"`
	EmailVerified     bool                   `json:"email_verified"`
	PreferredUsername string                 `json:"preferred_username"`
}

type Account struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
	ExpTime  int64    `json:"exp_time"`
}

func (object *Account) String() string {
	b, _ := json.Marshal(object)
	return string(b)
}

func (object *AuthClaim) String() string {
	b, _ := json.Marshal(object)
	return string(b)
}

func (object *Account) HasRole(role string) bool {
	_, found := utils.FindInSlice(object.Roles, role)
	return found
}

func (object *Account) IsAdmin() bool {
	return object.HasRole(constants.RoleAdmin)
}

func (authClaim *AuthClaim) ConvertAuthClaimToAccount() *Account {
	roles := authClaim.RealmRoles
	if len(roles) == 0 {
		roles = authClaim.RealmAccess.Roles
	}
	return &Account{
		ID:       authClaim.Sub,
		Roles:    roles,
		ExpTime:  authClaim.Exp,
		Username: authClaim.PreferredUsername,
	}
}
