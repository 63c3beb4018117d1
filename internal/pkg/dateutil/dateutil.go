// Package dateutil 提供 API 响应里使用的日期格式化函数。
package dateutil

import (
	"fmt"
	"time"
)

// AccountCreationDate 把时间格式化为 "Jan 2006"，用于展示账号创建月份。
func AccountCreationDate(t time.Time) string {
	return t.Format("Jan 2006")
}

// FormattedDate 把时间格式化为 dd/MM/yyyy。
func FormattedDate(t time.Time) string {
	return fmt.Sprintf("%s/%s/%d", FormatNumber(t.Day()), FormatNumber(int(t.Month())), t.Year())
}

// FormattedDateTime 把时间格式化为 dd/MM/yyyy hh:mm:ss。
func FormattedDateTime(t time.Time) string {
	return fmt.Sprintf("%s %s", FormattedDate(t), t.Format("15:04:05"))
}

// FormatNumber 给小于 10 的正数补一个前导 0。
func FormatNumber(num int) string {
	if num < 10 && num > 0 {
		return fmt.Sprintf("0%d", num)
	}
	return fmt.Sprintf("%d", num)
}
