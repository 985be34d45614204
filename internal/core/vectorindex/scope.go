package vectorindex

import (
	"errors"
	"fmt"

	"github.com/samber/mo"
)

// ペイロードのスコープキー
const (
	FieldCourseID   = "course_id"
	FieldModuleID   = "module_id"
	FieldResourceID = "resource_id"
)

var (
	// ErrInvalidScope はスコープの階層制約に違反した場合のエラー
	ErrInvalidScope = errors.New("invalid scope")
)

// Scope は course ⊃ module ⊃ resource の入れ子で対象範囲を表す。
// 未指定のフィールドは制約なし。
type Scope struct {
	CourseID   mo.Option[int64]
	ModuleID   mo.Option[int64]
	ResourceID mo.Option[int64]
}

// CourseScope はコース全体を表すスコープを返す
func CourseScope(courseID int64) Scope {
	return Scope{CourseID: mo.Some(courseID)}
}

// ModuleScope はモジュール単位のスコープを返す
func ModuleScope(courseID, moduleID int64) Scope {
	return Scope{CourseID: mo.Some(courseID), ModuleID: mo.Some(moduleID)}
}

// ResourceScope はリソース単位のスコープを返す
func ResourceScope(courseID, moduleID, resourceID int64) Scope {
	return Scope{CourseID: mo.Some(courseID), ModuleID: mo.Some(moduleID), ResourceID: mo.Some(resourceID)}
}

// ScopeFromPtrs は nil 許容の ID からスコープを組み立てる
func ScopeFromPtrs(courseID, moduleID, resourceID *int64) Scope {
	return Scope{
		CourseID:   mo.PointerToOption(courseID),
		ModuleID:   mo.PointerToOption(moduleID),
		ResourceID: mo.PointerToOption(resourceID),
	}
}

// IsEmpty はどのフィールドも指定されていない場合に true を返す
func (s Scope) IsEmpty() bool {
	return s.CourseID.IsAbsent() && s.ModuleID.IsAbsent() && s.ResourceID.IsAbsent()
}

// Validate は module は course を、resource は module を必要とする制約を検証する
func (s Scope) Validate() error {
	if s.ModuleID.IsPresent() && s.CourseID.IsAbsent() {
		return fmt.Errorf("%w: module_id requires course_id", ErrInvalidScope)
	}
	if s.ResourceID.IsPresent() && s.ModuleID.IsAbsent() {
		return fmt.Errorf("%w: resource_id requires module_id", ErrInvalidScope)
	}
	return nil
}

// ValidateForWrite は同期・削除で使うスコープを検証する (course 必須)
func (s Scope) ValidateForWrite() error {
	if s.CourseID.IsAbsent() {
		return fmt.Errorf("%w: course_id is required", ErrInvalidScope)
	}
	return s.Validate()
}

// Filter は指定済みフィールドの整数一致条件を AND で結合したフィルタを返す。
// 空スコープは全件一致。
func (s Scope) Filter() Filter {
	var f Filter
	if v, ok := s.CourseID.Get(); ok {
		f.Must = append(f.Must, Match(FieldCourseID, v))
	}
	if v, ok := s.ModuleID.Get(); ok {
		f.Must = append(f.Must, Match(FieldModuleID, v))
	}
	if v, ok := s.ResourceID.Get(); ok {
		f.Must = append(f.Must, Match(FieldResourceID, v))
	}
	return f
}

// LogAttrs はログ出力用の属性を返す
func (s Scope) LogAttrs() []any {
	return []any{
		"courseID", optionString(s.CourseID),
		"moduleID", optionString(s.ModuleID),
		"resourceID", optionString(s.ResourceID),
	}
}

// String はスコープを人間向けに整形する
func (s Scope) String() string {
	return fmt.Sprintf("course=%s module=%s resource=%s",
		optionString(s.CourseID), optionString(s.ModuleID), optionString(s.ResourceID))
}

func optionString(o mo.Option[int64]) string {
	if v, ok := o.Get(); ok {
		return fmt.Sprintf("%d", v)
	}
	return "ALL"
}
