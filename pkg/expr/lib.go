package expr

import (
	"time"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/ext"
)

type lib struct{}

func (lib) CompileOptions() []cel.EnvOption {
	opts := []cel.EnvOption{
		ext.Math(),
		ext.Strings(),
		ext.Lists(),

		cel.Variable("hour", cel.IntType),
		cel.Variable("minute", cel.IntType),
		cel.Variable("weekday", cel.IntType),
		cel.Variable("now", cel.TimestampType),

		cel.Function("inHours",
			cel.Overload("inHours_int_int_int",
				[]*cel.Type{cel.IntType, cel.IntType, cel.IntType}, cel.BoolType,
				cel.FunctionBinding(func(args ...ref.Val) ref.Val {
					vals := make([]int64, 0, len(args))
					for _, arg := range args {
						i, ok := arg.(types.Int)
						if !ok {
							return types.NewErr("inHours: expected int arguments")
						}

						vals = append(vals, int64(i))
					}

					return types.Bool(InHours(vals[0], vals[1], vals[2]))
				}),
			),
		),
	}

	for d := time.Sunday; d <= time.Saturday; d++ {
		opts = append(opts, cel.Constant(weekdayConstant(d), cel.IntType, types.Int(d)))
	}

	return opts
}

func (lib) ProgramOptions() []cel.ProgramOption {
	return nil
}

// InHours reports whether hour falls in [start, end), wrapping past midnight
// when start > end. An empty range (start == end) contains no hours.
func InHours[T ~int | ~int64](hour, start, end T) bool {
	if start <= end {
		return hour >= start && hour < end
	}

	return hour >= start || hour < end
}

func weekdayConstant(d time.Weekday) string {
	switch d {
	case time.Sunday:
		return "SUNDAY"
	case time.Monday:
		return "MONDAY"
	case time.Tuesday:
		return "TUESDAY"
	case time.Wednesday:
		return "WEDNESDAY"
	case time.Thursday:
		return "THURSDAY"
	case time.Friday:
		return "FRIDAY"
	case time.Saturday:
		return "SATURDAY"
	}

	return ""
}
