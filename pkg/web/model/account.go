package model

import "time"

// 请求/响应数据结构
type (
	RegisterReq struct {
		Email              string `json:"email" vd:"len($)>0"`
		Password           string `json:"password" vd:"len($)>0"`
		FirstName          string `json:"first_name"`
		LastName           string `json:"last_name"`
		PreferredTransport string `json:"preferred_transport"`
	}

	RegisterRes struct {
		ID string `json:"id"`
	}

	LoginReq struct {
		Email    string `json:"email" vd:"len($)>0"`
		Password string `json:"password" vd:"len($)>0"`
	}

	LoginRes struct {
		Token     string    `json:"token"`
		SessionID string    `json:"session_id"`
		UserID    string    `json:"user_id"`
		ExpiresAt time.Time `json:"expires_at"`
	}

	ChangePwdReq struct {
		OldPassword string `json:"old_password" vd:"len($)>0"`
		NewPassword string `json:"new_password" vd:"len($)>0"`
	}
)
