package core

type Usage struct {
	Input  int64 `json:"input"`
	Output int64 `json:"output"`
	Total  int64 `json:"total"`
}

func (u *Usage) Inc(ou Usage) {
	u.Input += ou.Input
	u.Output += ou.Output
	u.Total += ou.Total
}

func (u Usage) IsZero() bool {
	return u.Input == 0 && u.Output == 0 && u.Total == 0
}
