package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// GoalType 目标类型
type GoalType string

const (
	GoalTargetBalance       GoalType = "TARGET_BALANCE"
	GoalTargetBalanceByDate GoalType = "TARGET_BALANCE_BY_DATE"
	GoalPeriodicFunding     GoalType = "PERIODIC_FUNDING"
	GoalPercentOfIncome     GoalType = "PERCENT_OF_INCOME"
	GoalCustom              GoalType = "CUSTOM"
)

// 周期性存入的频率
const (
	CadenceWeekly  = "WEEKLY"
	CadenceMonthly = "MONTHLY"
	CadenceYearly  = "YEARLY"
)

var (
	ErrGoalTarget  = errors.New("目标金额必须大于 0")
	ErrGoalDate    = errors.New("目标日期不能为空")
	ErrGoalCadence = errors.New("无效的存入频率")
	ErrGoalPercent = errors.New("收入比例必须在 0 到 100 之间")
	ErrGoalType    = errors.New("无效的目标类型")
	ErrGoalOwner   = errors.New("目标必须且只能关联一个类别或类别分组")
)

// Goal 储蓄/支出目标，关联类别或类别分组之一
// 类型相关字段通过 Spec()/ApplySpec 以标签联合的形式读写
type Goal struct {
	ID              uint                `json:"id" gorm:"primaryKey"`
	PlanID          uint                `json:"plan_id" gorm:"index;not null"`
	CategoryID      *uint               `json:"category_id" gorm:"index"`
	CategoryGroupID *uint               `json:"category_group_id" gorm:"index"`
	Name            string              `json:"name" gorm:"size:100;not null"`
	Type            GoalType            `json:"type" gorm:"size:30;not null"`
	TargetAmount    decimal.NullDecimal `json:"target_amount" gorm:"type:decimal(20,2)"`
	TargetDate      *time.Time          `json:"target_date"`
	PeriodicAmount  decimal.NullDecimal `json:"periodic_amount" gorm:"type:decimal(20,2)"`
	Cadence         string              `json:"cadence,omitempty" gorm:"size:10"`
	Percent         decimal.NullDecimal `json:"percent" gorm:"type:decimal(5,2)"`
	Description     string              `json:"description,omitempty" gorm:"size:255"`
	CurrentAmount   decimal.Decimal     `json:"current_amount" gorm:"type:decimal(20,2);not null"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// TableName 设置表名
func (Goal) TableName() string {
	return "goals"
}

// GoalSpec 各类目标的参数
type GoalSpec interface {
	Kind() GoalType
	Validate() error
	apply(g *Goal)
}

// TargetBalance 累计到目标余额
type TargetBalance struct {
	Target decimal.Decimal
}

// TargetBalanceByDate 在指定日期前累计到目标余额
type TargetBalanceByDate struct {
	Target decimal.Decimal
	By     time.Time
}

// PeriodicFunding 按周期固定存入
type PeriodicFunding struct {
	Amount  decimal.Decimal
	Cadence string
}

// PercentOfIncome 按收入比例存入
type PercentOfIncome struct {
	Percent decimal.Decimal
}

// Custom 自定义目标，目标金额可选
type Custom struct {
	Target      decimal.NullDecimal
	Description string
}

func (TargetBalance) Kind() GoalType       { return GoalTargetBalance }
func (TargetBalanceByDate) Kind() GoalType { return GoalTargetBalanceByDate }
func (PeriodicFunding) Kind() GoalType     { return GoalPeriodicFunding }
func (PercentOfIncome) Kind() GoalType     { return GoalPercentOfIncome }
func (Custom) Kind() GoalType              { return GoalCustom }

func (s TargetBalance) Validate() error {
	if !s.Target.IsPositive() {
		return ErrGoalTarget
	}
	return nil
}

func (s TargetBalanceByDate) Validate() error {
	if !s.Target.IsPositive() {
		return ErrGoalTarget
	}
	if s.By.IsZero() {
		return ErrGoalDate
	}
	return nil
}

func (s PeriodicFunding) Validate() error {
	if !s.Amount.IsPositive() {
		return ErrGoalTarget
	}
	switch s.Cadence {
	case CadenceWeekly, CadenceMonthly, CadenceYearly:
		return nil
	}
	return ErrGoalCadence
}

func (s PercentOfIncome) Validate() error {
	if !s.Percent.IsPositive() || s.Percent.GreaterThan(decimal.NewFromInt(100)) {
		return ErrGoalPercent
	}
	return nil
}

func (s Custom) Validate() error {
	if s.Target.Valid && !s.Target.Decimal.IsPositive() {
		return ErrGoalTarget
	}
	return nil
}

func (s TargetBalance) apply(g *Goal) {
	g.TargetAmount = decimal.NewNullDecimal(s.Target)
}

func (s TargetBalanceByDate) apply(g *Goal) {
	by := s.By.UTC()
	g.TargetAmount = decimal.NewNullDecimal(s.Target)
	g.TargetDate = &by
}

func (s PeriodicFunding) apply(g *Goal) {
	g.PeriodicAmount = decimal.NewNullDecimal(s.Amount)
	g.Cadence = s.Cadence
}

func (s PercentOfIncome) apply(g *Goal) {
	g.Percent = decimal.NewNullDecimal(s.Percent)
}

func (s Custom) apply(g *Goal) {
	g.TargetAmount = s.Target
	g.Description = s.Description
}

// ApplySpec 校验并写入目标参数，清空与类型无关的字段
func (g *Goal) ApplySpec(spec GoalSpec) error {
	if spec == nil {
		return ErrGoalType
	}
	if err := spec.Validate(); err != nil {
		return err
	}
	g.Type = spec.Kind()
	g.TargetAmount = decimal.NullDecimal{}
	g.TargetDate = nil
	g.PeriodicAmount = decimal.NullDecimal{}
	g.Cadence = ""
	g.Percent = decimal.NullDecimal{}
	g.Description = ""
	spec.apply(g)
	return nil
}

// Spec 从存储字段还原目标参数
func (g *Goal) Spec() (GoalSpec, error) {
	switch g.Type {
	case GoalTargetBalance:
		return TargetBalance{Target: g.TargetAmount.Decimal}, nil
	case GoalTargetBalanceByDate:
		var by time.Time
		if g.TargetDate != nil {
			by = *g.TargetDate
		}
		return TargetBalanceByDate{Target: g.TargetAmount.Decimal, By: by}, nil
	case GoalPeriodicFunding:
		return PeriodicFunding{Amount: g.PeriodicAmount.Decimal, Cadence: g.Cadence}, nil
	case GoalPercentOfIncome:
		return PercentOfIncome{Percent: g.Percent.Decimal}, nil
	case GoalCustom:
		return Custom{Target: g.TargetAmount, Description: g.Description}, nil
	}
	return nil, ErrGoalType
}

// Progress 完成百分比（0-100），无目标金额时返回 false
func (g *Goal) Progress() (decimal.Decimal, bool) {
	var target decimal.Decimal
	switch g.Type {
	case GoalPeriodicFunding:
		if !g.PeriodicAmount.Valid {
			return decimal.Zero, false
		}
		target = g.PeriodicAmount.Decimal
	default:
		if !g.TargetAmount.Valid {
			return decimal.Zero, false
		}
		target = g.TargetAmount.Decimal
	}
	if !target.IsPositive() {
		return decimal.Zero, false
	}
	p := g.CurrentAmount.Div(target).Mul(decimal.NewFromInt(100))
	if p.GreaterThan(decimal.NewFromInt(100)) {
		p = decimal.NewFromInt(100)
	}
	if p.IsNegative() {
		p = decimal.Zero
	}
	return p.Round(2), true
}

// ValidateOwner 类别与类别分组必须二选一
func ValidateOwner(categoryID, groupID *uint) error {
	if (categoryID == nil) == (groupID == nil) {
		return ErrGoalOwner
	}
	return nil
}
