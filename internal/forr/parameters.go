package forr

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ForrInputParameter 一个参与扇出的参数，Value 按 Separator 拆分为候选值
type ForrInputParameter struct {
	Name      string `json:"name"`
	Value     string `json:"value"`
	Separator string `json:"separator"`
}

// ForrParameters forr 任务参数，序列化后保存在 TaskInstance.TaskParams
type ForrParameters struct {
	ProcessDefinitionCode        int64                `json:"processDefinitionCode"`
	ListParameters               []ForrInputParameter `json:"listParameters"`
	FilterCondition              string               `json:"filterCondition"`
	MaxNumOfSubWorkflowInstances int                  `json:"maxNumOfSubWorkflowInstances,omitempty"`
	DegreeOfParallelism          int                  `json:"degreeOfParallelism,omitempty"`
}

// ParameterGroup 一组具体的参数取值，对应一个子工作流实例
type ParameterGroup map[string]string

// DecodeParameters 解析序列化的任务参数
func DecodeParameters(raw string) (*ForrParameters, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: empty task params", ErrInvalidTaskParameters)
	}
	var params ForrParameters
	if err := json.Unmarshal([]byte(raw), &params); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTaskParameters, err)
	}
	if params.MaxNumOfSubWorkflowInstances < 0 || params.DegreeOfParallelism < 0 {
		return nil, fmt.Errorf("%w: negative limit", ErrInvalidTaskParameters)
	}
	return &params, nil
}

// Validate 校验单个参数
func (p ForrInputParameter) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: parameter name is empty", ErrInvalidTaskParameters)
	}
	if p.Separator == "" {
		return fmt.Errorf("%w: separator of %q is empty", ErrInvalidTaskParameters, p.Name)
	}
	return nil
}

// Candidates 拆分并去除首尾空白，保留重复值与空值
func (p ForrInputParameter) Candidates() []string {
	pieces := strings.Split(p.Value, p.Separator)
	for i, piece := range pieces {
		pieces[i] = strings.TrimSpace(piece)
	}
	return pieces
}
