package model

import (
	"time"

	profilemodel "rider-profile/pkg/core/profile/model"
)

type (
	// UpdateProfileReq 只更新出现的字段
	UpdateProfileReq struct {
		FirstName          *string `json:"first_name"`
		LastName           *string `json:"last_name"`
		PreferredTransport *string `json:"preferred_transport"`
	}

	SelectTitleReq struct {
		Title string `json:"title" vd:"len($)>0"`
	}

	ProfileRes struct {
		ID                 string    `json:"id"`
		FirstName          string    `json:"first_name"`
		LastName           string    `json:"last_name"`
		AvatarURL          string    `json:"avatar_url"`
		PreferredTransport string    `json:"preferred_transport"`
		Points             int64     `json:"points"`
		Titles             []string  `json:"titles"`
		SelectedTitle      *string   `json:"selected_title"`
		Favorites          []string  `json:"favorites"`
		UpdatedAt          time.Time `json:"updated_at"`
		NewTitles          []string  `json:"new_titles,omitempty"`
	}

	TitleRes struct {
		Title          string `json:"title"`
		PointsRequired int64  `json:"points_required"`
		Unlocked       bool   `json:"unlocked"`
		Selected       bool   `json:"selected"`
	}

	AvatarRes struct {
		Changed   bool   `json:"changed"`
		AvatarURL string `json:"avatar_url,omitempty"`
	}

	FavoritesRes struct {
		Favorites []string `json:"favorites"`
	}
)

func NewProfileRes(p profilemodel.Profile) ProfileRes {
	return ProfileRes{
		ID:                 p.ID,
		FirstName:          p.FirstName,
		LastName:           p.LastName,
		AvatarURL:          p.AvatarURL,
		PreferredTransport: p.PreferredTransport,
		Points:             p.Points,
		Titles:             nonNil(p.Titles),
		SelectedTitle:      p.SelectedTitle,
		Favorites:          nonNil(p.Favorites),
		UpdatedAt:          p.UpdatedAt,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return append([]string(nil), s...)
}
