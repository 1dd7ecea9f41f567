package course

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kozi/core"
)

var (
	// price policy: free is fine, negative is not, and anything above
	// the cap is a typo until proven otherwise.
	maxPriceCents = 500000

	priceCentsTag  = "pricecents"
	priceCentsText = fmt.Sprintf("price must be between 0 and %d cents", maxPriceCents)
)

func init() {
	// register validators
	_ = core.Validate.RegisterValidation(priceCentsTag, priceCentsValidation)
	core.RegisterCustomTranslation(priceCentsTag, priceCentsText)
}

func priceCentsValidation(fl validator.FieldLevel) bool {
	price := fl.Field().Int()
	return price >= 0 && price <= int64(maxPriceCents)
}
