package domain

import "github.com/shopspring/decimal"

// Values are the monetary components of a record or of a whole subtree.
type Values struct {
	Negativo      decimal.Decimal `json:"negativo"`
	Cauzione      decimal.Decimal `json:"cauzione"`
	Vers          decimal.Decimal `json:"vers"`
	Disponibilita decimal.Decimal `json:"disponibilita"`
	Result        decimal.Decimal `json:"result"`
}

// ComputeResult is negativo + cauzione + vers, with vers dropped when includeVers is false.
// Disponibilita never takes part in the result.
func ComputeResult(negativo, cauzione, vers decimal.Decimal, includeVers bool) decimal.Decimal {
	res := negativo.Add(cauzione)
	if includeVers {
		res = res.Add(vers)
	}
	return res
}

// OwnValues is the record's own contribution. When includeVers is false the weekly
// deposit is reported as zero so that it drops out of every ancestor sum as well.
func OwnValues(r Record, includeVers bool) Values {
	vers := decimal.Zero
	if includeVers {
		vers = r.VersamentiSettimanali
	}
	return Values{
		Negativo:      r.Negativo,
		Cauzione:      r.Cauzione,
		Vers:          vers,
		Disponibilita: r.Disponibilita,
		Result:        ComputeResult(r.Negativo, r.Cauzione, r.VersamentiSettimanali, includeVers),
	}
}

// Add sums two Values component by component.
func (v Values) Add(o Values) Values {
	return Values{
		Negativo:      v.Negativo.Add(o.Negativo),
		Cauzione:      v.Cauzione.Add(o.Cauzione),
		Vers:          v.Vers.Add(o.Vers),
		Disponibilita: v.Disponibilita.Add(o.Disponibilita),
		Result:        v.Result.Add(o.Result),
	}
}

// Equal compares numerically, ignoring decimal exponent differences.
func (v Values) Equal(o Values) bool {
	return v.Negativo.Equal(o.Negativo) &&
		v.Cauzione.Equal(o.Cauzione) &&
		v.Vers.Equal(o.Vers) &&
		v.Disponibilita.Equal(o.Disponibilita) &&
		v.Result.Equal(o.Result)
}
