package plan

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	schederrors "github.com/maxkimambo/depsched/internal/errors"
	"github.com/maxkimambo/depsched/internal/scheduler"
	"github.com/maxkimambo/depsched/internal/workflow"
	"gopkg.in/yaml.v3"
)

// Plan is a task graph declared in a YAML file
type Plan struct {
	Name               string        `yaml:"name" validate:"required,max=128"`
	MaxConcurrency     int           `yaml:"max_concurrency" validate:"gte=0,lte=1024"`
	TaskTimeout        time.Duration `yaml:"task_timeout" validate:"gte=0"`
	StrictDependencies bool          `yaml:"strict_dependencies"`
	Tasks              []Task        `yaml:"tasks" validate:"required,min=1,unique=ID,dive"`
}

// Task is one entry of a plan
type Task struct {
	ID        string            `yaml:"id" validate:"required,max=128,taskid"`
	DependsOn []string          `yaml:"depends_on" validate:"dive,required"`
	Command   string            `yaml:"command"`
	Dir       string            `yaml:"dir"`
	Env       map[string]string `yaml:"env"`
	Timeout   time.Duration     `yaml:"timeout" validate:"gte=0"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("taskid", validateTaskID)
}

// validateTaskID rejects ids containing whitespace
func validateTaskID(fl validator.FieldLevel) bool {
	return !strings.ContainsAny(fl.Field().String(), " \t\r\n")
}

// Load reads and validates a plan file
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, schederrors.NewTaskError(schederrors.ErrorCategoryConfiguration, schederrors.CodeConfigValue,
			fmt.Sprintf("failed to read plan file %s", path), "load plan").
			WithContext("path", path).
			WithOriginalError(err)
	}

	p, err := Parse(data)
	if err != nil {
		var taskErr *schederrors.TaskError
		if errors.As(err, &taskErr) {
			taskErr.WithContext("path", path)
		}
		return nil, err
	}
	return p, nil
}

// Parse decodes and validates a plan. Unknown keys are rejected.
func Parse(data []byte) (*Plan, error) {
	var p Plan

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		msg := "failed to parse plan"
		if errors.Is(err, io.EOF) {
			msg = "plan is empty"
		}
		return nil, schederrors.NewTaskError(schederrors.ErrorCategoryConfiguration, schederrors.CodeConfigValue,
			msg, "parse plan").
			WithOriginalError(err).
			WithTroubleshooting("Check the YAML syntax and field names (name, max_concurrency, task_timeout, strict_dependencies, tasks)")
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks field constraints. Graph problems such as cycles are left
// to the scheduler.
func (p *Plan) Validate() error {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return schederrors.NewTaskError(schederrors.ErrorCategoryConfiguration, schederrors.CodeConfigValue,
			"plan validation failed", "validate plan").
			WithOriginalError(err)
	}

	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		problems = append(problems, describe(fe))
	}

	return schederrors.NewTaskError(schederrors.ErrorCategoryConfiguration, schederrors.CodeConfigValue,
		fmt.Sprintf("invalid plan: %s", strings.Join(problems, "; ")), "validate plan").
		WithContext("plan", p.Name).
		WithContext("problems", problems).
		WithOriginalError(err)
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Plan.")
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "unique":
		return fmt.Sprintf("%s must have unique %s values", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s needs at least %s entries", field, fe.Param())
	case "taskid":
		return fmt.Sprintf("%s must not contain whitespace", field)
	default:
		return fmt.Sprintf("%s failed '%s=%s' (got %v)", field, fe.Tag(), fe.Param(), fe.Value())
	}
}

// SchedulerConfig returns scheduler settings from the plan, starting from
// scheduler.DefaultConfig
func (p *Plan) SchedulerConfig() *scheduler.Config {
	config := scheduler.DefaultConfig()
	config.Name = p.Name
	if p.MaxConcurrency > 0 {
		config.MaxConcurrentTasks = p.MaxConcurrency
	}
	config.TaskTimeout = p.TaskTimeout
	config.StrictDependencies = p.StrictDependencies
	return config
}

// Register adds every task to s in file order
func (p *Plan) Register(s *scheduler.Scheduler) error {
	for _, task := range p.Tasks {
		if err := s.RegisterTask(task.ID, task.DependsOn...); err != nil {
			return err
		}
	}
	return nil
}

// Task returns the task with the given id
func (p *Plan) Task(id string) (Task, bool) {
	for _, task := range p.Tasks {
		if task.ID == id {
			return task, true
		}
	}
	return Task{}, false
}

// Workflow builds a workflow whose handlers come from handlerFor
func (p *Plan) Workflow(handlerFor func(Task) workflow.TaskFunc) (*workflow.Workflow, error) {
	b := workflow.NewBuilder(p.Name)
	for _, task := range p.Tasks {
		b.AddTask(task.ID, handlerFor(task))
	}
	for _, task := range p.Tasks {
		for _, dep := range task.DependsOn {
			b.AddDependency(task.ID, dep)
		}
	}
	return b.Build()
}
