// Package constants содержит общие константы logtree.
package constants

// AppName — имя приложения: service.name, job Pushgateway, namespace метрик.
const AppName = "logtree"

// Version — версия сборки. Переопределяется при сборке:
//
//	go build -ldflags "-X github.com/Kargones/logtree/internal/constants.Version=1.2.0"
var Version = "dev"

// UserAgent возвращает значение заголовка User-Agent исходящих запросов.
func UserAgent() string {
	return AppName + "/" + Version
}
