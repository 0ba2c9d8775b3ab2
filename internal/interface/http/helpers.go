package httpapi

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

// parseTradeDate 解析 trade_date 參數，空值時退回台北時區的今天。
func (s *Server) parseTradeDate(c *gin.Context) (time.Time, error) {
	raw := c.Query("trade_date")
	if raw == "" {
		now := time.Now().In(taipeiLocation())
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	d, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid trade_date")
	}
	return d, nil
}

func (s *Server) parseDateRange(c *gin.Context) (time.Time, time.Time, error) {
	startStr := c.Query("start_date")
	endStr := c.Query("end_date")

	if startStr == "" {
		end := time.Now()
		start := end.AddDate(0, 0, -30)
		return start, end, nil
	}

	start, err := time.Parse(dateLayout, startStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start_date")
	}

	var end time.Time
	if endStr == "" {
		end = time.Now()
	} else {
		end, err = time.Parse(dateLayout, endStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end_date")
		}
	}

	return start, end, nil
}

func (s *Server) setRefreshCookie(c *gin.Context, token string, expiry time.Time) {
	host, _, _ := strings.Cut(c.Request.Host, ":")
	isLocal := host == "localhost" || host == "127.0.0.1"

	c.SetCookie(
		refreshCookieName,
		token,
		int(time.Until(expiry).Seconds()),
		"/",
		"",
		!isLocal,
		true,
	)
}

func taipeiLocation() *time.Location {
	loc, err := time.LoadLocation("Asia/Taipei")
	if err != nil {
		return time.FixedZone("Asia/Taipei", 8*3600)
	}
	return loc
}

func parseBearer(h string) string {
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

func currentUserID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

func parseIntDefault(s string, def int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func parseBoolDefault(s string, def bool) bool {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return v
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
