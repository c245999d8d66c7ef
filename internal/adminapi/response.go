package adminapi

import "github.com/labstack/echo/v4"

func ok(c echo.Context, data interface{}) error {
	return c.JSON(200, map[string]interface{}{
		"code": 0,
		"data": data,
	})
}

func fail(c echo.Context, status int, code, message string, detail interface{}) error {
	return c.JSON(status, map[string]interface{}{
		"code":    1,
		"error":   code,
		"message": message,
		"detail":  detail,
	})
}
