package model

type Keyword string

const (
	None       Keyword = ""
	Entry      Keyword = "ENTRY"
	Exit       Keyword = "EXIT"
	TaskStart  Keyword = "TASK_START"
	TaskEnd    Keyword = "TASK_END"
	LunchStart Keyword = "LUNCH_START"
	LunchEnd   Keyword = "LUNCH_END"
	BreakStart Keyword = "BREAK_START"
	BreakEnd   Keyword = "BREAK_END"
)

// Keywords lists the vocabulary in matching order.
var Keywords = []Keyword{Entry, Exit, TaskStart, TaskEnd, LunchStart, LunchEnd, BreakStart, BreakEnd}

var tokens = map[Keyword]string{
	Entry:      "#entry",
	Exit:       "#exit",
	TaskStart:  "#taskstart",
	TaskEnd:    "#taskend",
	LunchStart: "#lunchstart",
	LunchEnd:   "#lunchend",
	BreakStart: "#breakstart",
	BreakEnd:   "#breakend",
}

// Token returns the chat token users type for the keyword, e.g. "#breakstart".
func (k Keyword) Token() string {
	return tokens[k]
}

func (k Keyword) Valid() bool {
	_, ok := tokens[k]
	return ok
}

func (k Keyword) String() string {
	return string(k)
}
