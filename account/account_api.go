package account

import (
	"net/http"

	"dentalscreen-api/constants"
	"dentalscreen-api/entities"
	"dentalscreen-api/mw"
	"dentalscreen-api/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AccountAPI struct {
	keycloakStore *KeycloakStore
	logger        *zap.Logger
}

func NewAccountAPI(kcs *KeycloakStore, logger *zap.Logger) (app *AccountAPI) {
	app = &AccountAPI{
		keycloakStore: kcs,
		logger:        logger,
	}
	return app
}

func (app *AccountAPI) InitRoute(engine *gin.Engine, path string) {
	g := engine.Group(path, mw.WrapAuthInfo(app.logger))
	g.GET("", mw.RequireRole(constants.RoleAdmin), app.GetAccounts)
	g.POST("", mw.RequireRole(constants.RoleAdmin), app.CreateAccount)
	g.GET("/me", app.GetMe)
}

func (app *AccountAPI) CreateAccount(c *gin.Context) {
	resp := entities.NewResponse()

	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" {
		resp.ErrorCode = constants.ServerInvalidData
		c.JSON(http.StatusBadRequest, resp)
		return
	}

	if err := app.keycloakStore.CreateAccount(req.Username, req.Email); err != nil {
		utils.LogError(err)
		resp.ErrorCode = constants.ServerError
		c.JSON(http.StatusInternalServerError, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (app *AccountAPI) GetAccounts(c *gin.Context) {
	resp := entities.NewResponse()

	username := c.Query("username")
	accounts, err := app.keycloakStore.GetAccounts(username)
	if err != nil {
		utils.LogError(err)
		resp.ErrorCode = constants.ServerError
		c.JSON(http.StatusInternalServerError, resp)
		return
	}

	resp.Data = accounts
	resp.Count = len(accounts)
	c.JSON(http.StatusOK, resp)
}

func (app *AccountAPI) GetMe(c *gin.Context) {
	resp := entities.NewResponse()

	authInfo := mw.GetAuthInfoFromGin(c)
	if authInfo == nil {
		resp.ErrorCode = constants.ServerError
		c.JSON(http.StatusUnauthorized, resp)
		return
	}

	resp.Data = authInfo
	c.JSON(http.StatusOK, resp)
}
