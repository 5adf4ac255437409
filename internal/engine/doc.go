// Package engine разбирает и проверяет определения workflow.
//
// Включает:
//   - definition.go — формат файла (YAML или JSON) и загрузка с диска
//   - parser.go     — валидация и построение domain.Workflow
//
// Определение — внешнее, редактируемое представление workflow.
// Движок выполнения (orchestrator) работает только с domain.Workflow,
// который строит Build.
package engine
