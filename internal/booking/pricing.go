package booking

import (
	"math"
	"time"

	"github.com/nekogravitycat/resort-booking-backend/internal/stock"
)

// dayNumber is the count of UTC calendar days since the Unix epoch.
func dayNumber(t time.Time) int64 {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
}

// Nights counts calendar nights between the two dates; any positive stay that
// starts and ends on the same day is one night.
func Nights(checkIn, checkOut time.Time) int {
	if !checkOut.After(checkIn) {
		return 0
	}
	n := dayNumber(checkOut) - dayNumber(checkIn)
	if n < 1 {
		return 1
	}
	return int(n)
}

// priceSum combines non-negative money values and flags any int64 overflow.
type priceSum struct {
	overflow bool
}

func (a *priceSum) mul(factors ...int64) int64 {
	result := int64(1)
	for _, f := range factors {
		if f == 0 {
			return 0
		}
		if f < 0 || result > math.MaxInt64/f {
			a.overflow = true
			return 0
		}
		result *= f
	}
	return result
}

func (a *priceSum) add(x, y int64) int64 {
	if x > math.MaxInt64-y {
		a.overflow = true
		return 0
	}
	return x + y
}

// Reprice recomputes every line total from its unit prices and the stay, writes
// the results back into lines and returns the booking total. Given the same
// persisted lines and dates it always yields the same number.
func Reprice(lines *Lines, checkIn, checkOut time.Time) (int64, error) {
	nights := int64(Nights(checkIn, checkOut))
	var calc priceSum
	var total int64

	for i := range lines.Rooms {
		r := &lines.Rooms[i]
		r.ExtraPaxFee = calc.mul(int64(r.ExtraPax), r.ExtraPaxRate, nights)
		r.TotalPrice = calc.add(calc.mul(r.UnitPrice, int64(r.Quantity), nights), r.ExtraPaxFee)
		total = calc.add(total, r.TotalPrice)
	}
	for i := range lines.Cottages {
		c := &lines.Cottages[i]
		c.TotalPrice = calc.mul(c.UnitPrice, int64(c.Quantity))
		total = calc.add(total, c.TotalPrice)
	}
	for i := range lines.Amenities {
		a := &lines.Amenities[i]
		if a.Kind == stock.KindRental {
			a.TotalPrice = calc.mul(int64(a.Quantity), calc.add(a.UnitPrice, calc.mul(a.HourlyPrice, int64(a.HoursUsed))))
		} else {
			a.TotalPrice = calc.mul(a.UnitPrice, int64(a.Quantity))
		}
		total = calc.add(total, a.TotalPrice)
	}
	if calc.overflow {
		return 0, ErrPriceOverflow
	}
	return total, nil
}

// VerifyTotal re-derives the total from persisted lines without touching b.
func VerifyTotal(b *Booking) bool {
	lines := Lines{
		Rooms:     append([]RoomLine(nil), b.Rooms...),
		Cottages:  append([]CottageLine(nil), b.Cottages...),
		Amenities: append([]AmenityLine(nil), b.Amenities...),
	}
	total, err := Reprice(&lines, b.CheckIn, b.CheckOut)
	return err == nil && total == b.TotalPrice
}

// extraPax is the number of guests beyond what the booked units include.
func extraPax(adults, children, capacity, quantity int) int {
	extra := adults + children - capacity*quantity
	if extra < 0 {
		return 0
	}
	return extra
}
