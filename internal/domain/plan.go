package domain

type Plan struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Price    int64    `json:"price"`
	Features []string `json:"features"`
}

func (p Plan) Clone() Plan {
	cp := p
	cp.Features = append([]string(nil), p.Features...)
	return cp
}
