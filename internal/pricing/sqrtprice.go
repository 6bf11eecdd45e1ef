package pricing

import (
	"math/big"

	"github.com/shopspring/decimal"

	"pricegraph/internal/model"
)

// q192 is 2^192, the squared scale of the X96 fixed-point encoding.
var q192 = decimal.NewFromBigInt(new(big.Int).Lsh(big.NewInt(1), 192), 0)

// SqrtPriceX96ToTokenPrices decodes a pool's sqrt price into the two
// instantaneous token prices: price1 is the amount of token1 equal in value
// to one token0, price0 its reciprocal. The raw ratio is shifted by each
// token's decimal scale so prices are in human units.
func SqrtPriceX96ToTokenPrices(sqrtPriceX96 *big.Int, token0, token1 model.Token) (price0, price1 decimal.Decimal) {
	if sqrtPriceX96 == nil {
		return zero, zero
	}
	num := decimal.NewFromBigInt(new(big.Int).Mul(sqrtPriceX96, sqrtPriceX96), 0)

	// Single division with both decimal shifts folded in. Dividing by 2^192
	// first would round away ratios near the bottom of the sqrt price range
	// before the 10^dec0 shift could rescue them.
	price1 = SafeDiv(
		num.Mul(ExponentToBigDecimal(token0.Decimals)),
		q192.Mul(ExponentToBigDecimal(token1.Decimals)),
	)

	price0 = SafeDiv(one, price1)
	return price0, price1
}
