package mw

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"
	"time"

	"dentalscreen-api/keycloak"
	"dentalscreen-api/utils"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var GIN_CONTEXT_AUTHINFO = "AuthInfo"
var JWT_KEYS *keycloak.JWTKeys

func getJWTKeysFromKeycloak(uri string) keycloak.JWTKeys {
	utils.LogDebug(uri)
	res, err := http.Get(uri)
	if err != nil {
		panic(err)
	}
	defer res.Body.Close()

	body, err := ioutil.ReadAll(res.Body)
	jwtKeys := keycloak.JWTKeys{}
	err = json.Unmarshal(body, &jwtKeys)
	if err != nil {
		panic(err)
	}

	return jwtKeys
}

func ParseJWTAccessToken(token string) (*Account, error) {
	if JWT_KEYS == nil {
		JWT_KEYS = &keycloak.JWTKeys{}
		*JWT_KEYS = getJWTKeysFromKeycloak(fmt.Sprintf("%s/auth/realms/%s",
			viper.GetString("keycloak.uri"), viper.GetString("keycloak.app_realm")))
		utils.LogDebug(JWT_KEYS.String())
	}

	isValid, err := VerifyTokenWithPubkey(token, JWT_KEYS.PublicKey)
	if err != nil {
		return nil, err
	}
	if !isValid {
		return nil, errors.New("the token is invalid")
	}

	_token, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		return nil, nil
	})

	var authClaim AuthClaim

	if claims, ok := _token.Claims.(jwt.MapClaims); ok {
		jsonString, _ := json.Marshal(claims)
		json.Unmarshal(jsonString, &authClaim)
		account := authClaim.ConvertAuthClaimToAccount()

		now := time.Now().Unix()
		if now > authClaim.Exp {
			return nil, errors.New("token expired")
		}

		if account.Username != "" {
			return account, nil
		}
		return nil, err
	}
	return nil, err
}

// WrapAuthInfo resolves the caller identity from either a Bearer token
// or an X-USERINFO header set by the auth proxy, and stashes it on the
// gin context for handlers downstream.
func WrapAuthInfo(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var (
			auth  Account
			_auth []byte
			err   error
		)

		authHeader := c.GetHeader("Authorization")
		xUserinfoHeader := c.GetHeader("X-USERINFO")

		if authHeader == "" && xUserinfoHeader == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		splitted := strings.Split(authHeader, " ")
		logger.Debug("Request headers", zap.String("Authorization", authHeader))

		switch {
		case splitted[0] == "Bearer":
			if len(splitted) == 2 {
				var authp *Account
				authp, err = ParseJWTAccessToken(splitted[1])
				if err != nil {
					c.AbortWithStatus(http.StatusUnauthorized)
					return
				}
				auth = *authp
			} else {
				c.AbortWithStatus(http.StatusBadRequest)
				return
			}
		case xUserinfoHeader != "":
			_auth, err = base64.StdEncoding.DecodeString(xUserinfoHeader)
			if err == nil {
				err = json.Unmarshal(_auth, &auth)
			}

		default:
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": err.Error(),
			})
			c.Abort()
			return
		}
		c.Set(GIN_CONTEXT_AUTHINFO, &auth)
		c.Next()
	}
}

func GetAuthInfoFromGin(c *gin.Context) *Account {
	if inf, exists := c.Get(GIN_CONTEXT_AUTHINFO); exists {
		var account Account
		bytes, err := json.Marshal(inf)
		if err != nil {
			return nil
		}
		json.Unmarshal(bytes, &account)
		return &account
	}
	return nil
}

// RequireRole gates a route on the caller carrying one of the given
// roles. Role checks happen here; the core packages trust them.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := GetAuthInfoFromGin(c)
		if auth == nil {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		for _, role := range roles {
			if auth.HasRole(role) {
				c.Next()
				return
			}
		}
		c.AbortWithStatus(http.StatusForbidden)
	}
}

func VerifyTokenWithPubkey(token, keyData string) (bool, error) {
	if !strings.Contains(keyData, "BEGIN PUBLIC KEY") {
		keyData = fmt.Sprintf("-----BEGIN PUBLIC KEY-----\n%s\n-----END PUBLIC KEY-----", keyData)
	}

	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(keyData))
	if err != nil {
		return false, err
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return false, errors.New("malformed token")
	}
	err = jwt.SigningMethodRS256.Verify(strings.Join(parts[0:2], "."), parts[2], key)
	if err != nil {
		return false, nil
	}
	return true, nil
}
