// Package memstore — in-memory реализации хранилищ движка.
//
// Используется CLI для локального запуска workflow без Postgres
// и тестами остальных пакетов. Все хранилища потокобезопасны
// и хранят копии: изменение объекта после сохранения не влияет
// на данные в хранилище.
package memstore
