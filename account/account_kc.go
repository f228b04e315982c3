package account

import (
	"context"
	"errors"

	"dentalscreen-api/keycloak"

	"github.com/Nerzal/gocloak/v7"
)

type KeycloakStore struct {
	kc    *keycloak.KeycloakConfig
	realm string
}

func NewKeycloakStore(kc *keycloak.KeycloakConfig, realm string) *KeycloakStore {
	return &KeycloakStore{
		kc:    kc,
		realm: realm,
	}
}

func (app *KeycloakStore) getKeycloakSession() (*keycloak.KeycloakSession, error) {
	kc := app.kc.NewKeycloakClient()
	t, err := app.kc.NewKeycloakToken(kc)
	if err != nil {
		return nil, err
	}

	ks := &keycloak.KeycloakSession{
		Realm:  app.realm,
		Token:  t,
		Client: kc,
	}

	return ks, nil
}

// CreateAccount registers a new enabled user in the app realm.
func (app *KeycloakStore) CreateAccount(username, email string) error {
	enabled := true
	user := gocloak.User{
		Username: &username,
		Email:    &email,
		Enabled:  &enabled,
	}
	return app.kc.CreateNewUser(user, app.realm)
}

func (app *KeycloakStore) GetAccount(username, id string) (*keycloak.UserModel, error) {
	users, err := app.GetAccounts(username)
	if err != nil {
		return nil, err
	}

	for i := range users {
		if users[i].ID == id {
			return users[i], nil
		}
	}

	return nil, errors.New("user does not exist")
}

// GetAccountsAsMap keys accounts by ID, for enriching submission lists
// with patient display names.
func (app *KeycloakStore) GetAccountsAsMap(username string) (map[string]*keycloak.UserModel, error) {
	accounts, err := app.GetAccounts(username)
	if err != nil {
		return nil, err
	}
	ret := make(map[string]*keycloak.UserModel)
	for i := range accounts {
		ret[accounts[i].ID] = accounts[i]
	}
	return ret, nil
}

func (app *KeycloakStore) GetAccounts(username string) ([]*keycloak.UserModel, error) {
	ks, err := app.getKeycloakSession()
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	users, err := ks.GetUsers(username, ctx)
	if err != nil {
		return nil, err
	}

	data := make([]*keycloak.UserModel, 0)
	for _, user := range users {
		detail, err := ks.GetUserDetail(user, ctx)
		if err != nil {
			continue
		}
		data = append(data, detail)
	}
	return data, nil
}
